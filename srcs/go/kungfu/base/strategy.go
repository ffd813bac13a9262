package base

import (
	"sort"

	"github.com/pkg/errors"
)

type Strategy int32

const (
	Star Strategy = iota
	Ring
	BinaryTree
	BinaryTreeStar
	MultiBinaryTreeStar
	Auto
)

const DefaultStrategy = BinaryTreeStar

var strategyNames = map[Strategy]string{
	Star:                `STAR`,
	Ring:                `RING`,
	BinaryTree:          `BINARY_TREE`,
	BinaryTreeStar:      `BINARY_TREE_STAR`,
	MultiBinaryTreeStar: `MULTI_BINARY_TREE_STAR`,
	Auto:                `AUTO`,
}

func StrategyNames() []string {
	var names []string
	for _, name := range strategyNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Strategy) String() string {
	return strategyNames[s]
}

// Set implements flag.Value
func (s *Strategy) Set(val string) error {
	value, err := ParseStrategy(val)
	if err != nil {
		return err
	}
	*s = *value
	return nil
}

var errInvalidStrategy = errors.New("invalid strategy")

func ParseStrategy(s string) (*Strategy, error) {
	for k, v := range strategyNames {
		if s == v {
			return &k, nil
		}
	}
	return nil, errors.Wrapf(errInvalidStrategy, "%q, expect one of %v", s, StrategyNames())
}
