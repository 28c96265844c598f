package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Compile parses and compiles src without running it.
func Compile(src, chunkName string) error {
	chunk, err := parse.Parse(strings.NewReader(src), chunkName)
	if err != nil {
		return err
	}
	_, err = lua.Compile(chunk, chunkName)
	return err
}
