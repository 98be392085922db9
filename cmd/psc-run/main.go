// Command psc-run compiles a psc tuple expression, runs it on a fresh heap and
// prints the integer it evaluates to.
//
// Extra flags can be given in the PSCFLAGS environment variable; they are
// split like a shell would and placed in front of the command line flags.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/shlex"
	"github.com/kr/pretty"
	"github.com/limechain/tuplegc/compiler"
	"github.com/limechain/tuplegc/gc"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func main() {
	args, err := withEnvFlags(os.Args, os.Getenv("PSCFLAGS"))
	if err == nil {
		err = newApp(os.Stdout, os.Stderr).Run(args)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "psc-run:", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "psc-run",
		Usage:     "run a psc tuple expression and print its result",
		ArgsUsage: "<expression>",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load heap settings from a YAML `FILE`", EnvVars: []string{"PSC_CONFIG"}},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "read the expression from `FILE`"},
			&cli.StringFlag{Name: "stack-size", Usage: "initial root stack `SIZE`, e.g. 16KB"},
			&cli.StringFlag{Name: "heap-size", Usage: "initial semi-space `SIZE`"},
			&cli.StringFlag{Name: "max-heap-size", Usage: "largest semi-space `SIZE` the heap may grow to"},
			&cli.StringFlag{Name: "page-size", Usage: "heap growth granularity, defaults to the system page size"},
			&cli.BoolFlag{Name: "disasm", Usage: "print the compiled program"},
			&cli.BoolFlag{Name: "dump", Usage: "print the heap after running"},
			&cli.BoolFlag{Name: "stats", Usage: "print heap statistics after running"},
			&cli.BoolFlag{Name: "no-color", Usage: "never color the output"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every collection"},
		},
		Action: func(c *cli.Context) error {
			return run(c, stdout, stderr)
		},
		Commands: []*cli.Command{
			replCommand(stderr),
		},
	}
}

func run(c *cli.Context, stdout, stderr io.Writer) error {
	src, err := source(c)
	if err != nil {
		return err
	}
	h, err := newHeap(c, stderr)
	if err != nil {
		return err
	}

	out, colored := colorOutput(stdout, c.Bool("no-color"))
	result, prog, err := evaluate(h, src)
	if prog != nil && c.Bool("disasm") {
		fmt.Fprint(out, prog)
	}
	if err != nil {
		return err
	}
	printResult(out, result, colored)

	if c.Bool("dump") {
		if err := h.Dump(out); err != nil {
			return err
		}
	}
	if c.Bool("stats") {
		printStats(out, h)
	}
	return nil
}

// Returns the expression to run, from --file or the arguments.
func source(c *cli.Context) (string, error) {
	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.Wrap(err, "read program")
		}
		return string(data), nil
	}
	if c.NArg() == 0 {
		return "", errors.New("no expression given")
	}
	return strings.Join(c.Args().Slice(), " "), nil
}

func newHeap(c *cli.Context, stderr io.Writer) (*gc.Heap, error) {
	opts, err := loadOptions(c)
	if err != nil {
		return nil, err
	}
	cfg, err := opts.heapConfig()
	if err != nil {
		return nil, err
	}
	cfg.Logger = newLogger(stderr, opts.Verbose)
	return gc.New(cfg)
}

// Parses, compiles and runs src on h. The program is returned whenever it
// compiled, also if running it failed.
func evaluate(h *gc.Heap, src string) (int64, *compiler.Program, error) {
	e, err := compiler.Parse(src)
	if err != nil {
		return 0, nil, err
	}
	prog, err := compiler.Compile(e)
	if err != nil {
		return 0, nil, err
	}
	result, err := prog.Run(h)
	return result, prog, err
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Wraps w for colored output if it is a terminal.
func colorOutput(w io.Writer, disable bool) (io.Writer, bool) {
	f, ok := w.(*os.File)
	if !ok || disable || !isatty.IsTerminal(f.Fd()) {
		return w, false
	}
	return colorable.NewColorable(f), true
}

func printResult(w io.Writer, result int64, colored bool) {
	if colored {
		// colorOutput already decided, override the detection on os.Stdout.
		c := color.New(color.FgGreen, color.Bold)
		c.EnableColor()
		c.Fprintf(w, "%d\n", result)
		return
	}
	fmt.Fprintf(w, "%d\n", result)
}

func printStats(w io.Writer, h *gc.Heap) {
	var m gc.MemStats
	h.ReadMemStats(&m)
	pretty.Fprintf(w, "%# v\n", m)
}

// Splits flags from the environment and inserts them right after the
// program name.
func withEnvFlags(args []string, env string) ([]string, error) {
	if strings.TrimSpace(env) == "" {
		return args, nil
	}
	extra, err := shlex.Split(env)
	if err != nil {
		return nil, errors.Wrap(err, "parse PSCFLAGS")
	}
	out := make([]string, 0, len(args)+len(extra))
	out = append(out, args[:1]...)
	out = append(out, extra...)
	return append(out, args[1:]...), nil
}
