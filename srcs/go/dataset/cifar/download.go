package cifar

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// Source locates a dataset archive and its expected checksum.
type Source struct {
	URL    string
	SHA256 string
}

var defaultSource = Source{URL: URL, SHA256: SHA256}

// ProgressOutput receives the download progress bar; nil disables it.
var ProgressOutput io.Writer = os.Stderr

var ErrChecksum = errors.New("checksum mismatch")

// Download fetches and extracts CIFAR-10 under dir unless it is already there.
func Download(ctx context.Context, dir string) error {
	return downloadFrom(ctx, defaultSource, dir)
}

// Exists reports whether all batch files are present under dir.
func Exists(dir string) bool {
	for _, name := range append(batchFiles(true), testFile) {
		if _, err := os.Stat(filepath.Join(dir, SubDir, name)); err != nil {
			return false
		}
	}
	return true
}

func downloadFrom(ctx context.Context, src Source, dir string) error {
	if Exists(dir) {
		log.Debugf("%s already present in %s", SubDir, dir)
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating %q", dir)
	}
	archive := filepath.Join(dir, TarName)
	if err := verify(archive, src.SHA256); err != nil {
		if err := fetch(ctx, src.URL, archive); err != nil {
			return err
		}
		if err := verify(archive, src.SHA256); err != nil {
			os.Remove(archive)
			return err
		}
	}
	if err := untar(archive, dir); err != nil {
		return err
	}
	if !Exists(dir) {
		return errors.Errorf("extracted %q but %s is incomplete", archive, SubDir)
	}
	return nil
}

func fetch(ctx context.Context, url, filename string) error {
	log.Infof("downloading %s", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "request %q", url)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed downloading %q", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("failed downloading %q: %s", url, resp.Status)
	}
	part := filename + ".part"
	f, err := os.Create(part)
	if err != nil {
		return errors.Wrapf(err, "failed creating file %q", part)
	}
	var w io.Writer = f
	var bar *progressbar.ProgressBar
	if ProgressOutput != nil {
		bar = progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetDescription(TarName),
			progressbar.OptionSetWriter(ProgressOutput),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetTheme(progressbar.ThemeUnicode),
			progressbar.OptionClearOnFinish(),
		)
		w = io.MultiWriter(f, bar)
	}
	n, err := io.Copy(w, resp.Body)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "downloading %q to %q", url, part)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed closing %q", part)
	}
	log.Infof("downloaded %s", humanize.Bytes(uint64(n)))
	return errors.Wrap(os.Rename(part, filename), "rename downloaded archive")
}

func verify(filename, want string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return errors.Wrapf(err, "hashing %q", filename)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != want {
		return errors.Wrapf(ErrChecksum, "%q has sha256 %s, want %s", filename, got, want)
	}
	return nil
}

// untar extracts the regular files below SubDir/ of a .tar.gz archive.
func untar(archive, dir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", archive)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "failed to un-gzip %q", archive)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "while reading %q", archive)
		}
		name := filepath.Clean(hdr.Name)
		if hdr.Typeflag != tar.TypeReg || !strings.HasPrefix(name, SubDir+string(filepath.Separator)) {
			continue
		}
		if err := extract(filepath.Join(dir, name), tr, hdr.Size); err != nil {
			return err
		}
	}
}

func extract(filename string, r io.Reader, size int64) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(f, r, size); err != nil {
		f.Close()
		return errors.Wrapf(err, "extracting %q", filename)
	}
	return f.Close()
}
