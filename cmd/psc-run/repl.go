package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-tty"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func replCommand(stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "evaluate expressions typed at the terminal, all on one heap",
		Action: func(c *cli.Context) error {
			return repl(c, stderr)
		},
	}
}

// Reads one expression per line until "exit" or end of input. Besides
// expressions it understands ":dump" and ":stats".
func repl(c *cli.Context, stderr io.Writer) error {
	h, err := newHeap(c, stderr)
	if err != nil {
		return err
	}

	t, err := tty.Open()
	if err != nil {
		return errors.Wrap(err, "open terminal")
	}
	defer t.Close()

	out, colored := colorOutput(t.Output(), c.Bool("no-color"))
	for {
		fmt.Fprint(out, "psc> ")
		line, err := t.ReadString()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch line = strings.TrimSpace(line); line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case ":dump":
			if err := h.Dump(out); err != nil {
				return err
			}
			continue
		case ":stats":
			printStats(out, h)
			continue
		}

		result, _, err := evaluate(h, line)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		printResult(out, result, colored)
	}
}
