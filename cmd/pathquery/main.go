// Command pathquery evaluates a path expression against a JSON or YAML
// document.
//
// Usage:
//
//	pathquery [flags] <expression> [file]
//
// The document is read from the given file, or from stdin when no file is
// given. YAML input is detected by file extension (.yaml, .yml) or forced
// with -yaml; everything else is parsed as JSON. The result is printed as
// JSON on stdout.
//
// Examples:
//
//	pathquery '$.store.book[0].title' store.json
//	cat store.json | pathquery '$..author'
//	pathquery -yaml '$.services[?(@.replicas > 1)].name' stack.yml
//
// Exit status is 0 when the expression resolves, 1 when it resolves to
// nothing, and 2 on parse, evaluation or input errors.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/treedoc/pathquery"
	"github.com/treedoc/pathquery/pkg/analyzer"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		forceYAML = flag.Bool("yaml", false, "parse the document as YAML regardless of extension")
		check     = flag.Bool("check", false, "validate the expression and exit without evaluating")
		verbose   = flag.Bool("v", false, "enable debug logging on stderr")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <expression> [file]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		return 2
	}
	expr := flag.Arg(0)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	path, err := pathquery.Parse(expr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		return 2
	}

	if *check {
		res := analyzer.Validate(path)
		for _, w := range res.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
		if !res.Valid {
			for _, e := range res.Errors {
				fmt.Fprintln(os.Stderr, "error:", e)
			}
			return 2
		}
		fmt.Println("ok")
		return 0
	}

	doc, err := loadDocument(flag.Arg(1), *forceYAML)
	if err != nil {
		fmt.Fprintln(os.Stderr, "input error:", err)
		return 2
	}

	engine := pathquery.NewEngine(doc,
		pathquery.WithLogger(logger),
		pathquery.WithDebug(*verbose),
	)
	value, found, err := engine.Evaluate(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "evaluation error:", err)
		return 2
	}
	if !found {
		fmt.Fprintln(os.Stderr, "no result")
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		fmt.Fprintln(os.Stderr, "output error:", err)
		return 2
	}
	return 0
}

// loadDocument reads and decodes the input. YAML decoding goes through a
// JSON round-trip so the document uses the same map[string]interface{}
// shape the evaluator expects.
func loadDocument(name string, forceYAML bool) (interface{}, error) {
	var data []byte
	var err error
	if name == "" || name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}

	isYAML := forceYAML ||
		strings.HasSuffix(name, ".yaml") ||
		strings.HasSuffix(name, ".yml")
	if isYAML {
		jsonData, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		data = jsonData
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return doc, nil
}
