// Rangerdump parses textual IR programs, computes value ranges for every
// statement in them, and prints what it learned. By default it prints one
// line per value; -dump prints the full per-block detail and -trace logs
// every internal query on the way there.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gookit/color"
	"golang.org/x/tools/txtar"

	"honnef.co/go/ranger/config"
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/mir"
	"honnef.co/go/ranger/ranger"
)

var (
	traceFlag = flag.Bool("trace", false, "Log every query the engine answers")
	dumpFlag  = flag.Bool("dump", false, "Print per-block detail instead of the summary")
	colorFlag = flag.Bool("color", true, "Colorize the summary")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	if len(flag.Args()) == 0 {
		fmt.Fprintln(flag.CommandLine.Output(), "Need at least one program file.")
		fmt.Fprintln(flag.CommandLine.Output(), "OPTIONS:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	for _, path := range flag.Args() {
		conf, err := config.Load(filepath.Dir(path))
		if err != nil {
			log.Fatalf("%s: %s", path, err)
		}
		for _, prog := range load(path) {
			fns, err := mir.Parse(prog.src)
			if err != nil {
				log.Fatalf("%s: %s", prog.name, err)
			}
			for _, fn := range fns {
				process(fn, conf)
			}
		}
	}
}

type program struct {
	name string
	src  string
}

// load reads one or more programs from path. A txtar archive contributes
// one program per file; anything else is a single program.
func load(path string) []program {
	if filepath.Ext(path) == ".txtar" {
		arch, err := txtar.ParseFile(path)
		if err != nil {
			log.Fatal(err)
		}
		var progs []program
		for _, f := range arch.Files {
			progs = append(progs, program{path + "/" + f.Name, string(f.Data)})
		}
		return progs
	}
	src, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	return []program{{path, string(src)}}
}

func process(fn *mir.Function, conf config.Config) {
	rr := ranger.New(fn, conf)
	var q ranger.Query = rr
	if *traceFlag || conf.Trace {
		q = &ranger.Tracer{Q: rr, Out: os.Stdout}
	}
	ranger.Seed(q, fn)

	fmt.Printf("func %s:\n", fn.Name)
	if *dumpFlag {
		rr.Dump(os.Stdout)
		return
	}
	for _, v := range fn.Values() {
		r, ok := q.RangeOfExpr(v, nil)
		if !ok {
			continue
		}
		fmt.Printf("  %-12s %s\n", v.Name(), render(r))
	}
}

// render colors a range by how much it says: red for proven unreachable,
// yellow for nothing learned, green for an actual narrowing.
func render(r irange.Range) string {
	s := r.String()
	if !*colorFlag {
		return s
	}
	switch {
	case r.Undefined():
		return color.Danger.Render(s)
	case r.Varying():
		return color.Notice.Render(s)
	default:
		return color.Success.Render(s)
	}
}
