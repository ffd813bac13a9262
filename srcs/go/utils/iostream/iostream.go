package iostream

import (
	"bufio"
	"fmt"
	"io"
)

// Tee copies r line by line to every writer in ws.
func Tee(r io.Reader, ws ...io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		for _, w := range ws {
			fmt.Fprintln(w, line)
		}
	}
	return scanner.Err()
}
