// Package session runs scripted sequences of operations against one account.
//
// A script has one operation per line:
//
//	# open with a few deposits
//	deposit 1500
//	deposit 456
//	expect ok
//	advance 1
//	withdraw 1001
//	expect daily-withdrawal-limit-exceeded
//
// Blank lines are ignored and '#' starts a comment. An expect checks the
// nearest earlier op that is not itself an expect, so several expects in a
// row all check the same op.
package session

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Op is one parsed script line.
type Op struct {
	Line int
	Name string
	Args []string
}

func (o Op) String() string {
	if len(o.Args) == 0 {
		return o.Name
	}
	return o.Name + " " + strings.Join(o.Args, " ")
}

// Parse reads a script. It only tokenizes; Runner.Validate checks op names and arity.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		ops = append(ops, Op{
			Line: line,
			Name: strings.ToLower(fields[0]),
			Args: fields[1:],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return ops, nil
}
