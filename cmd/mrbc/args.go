package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kurodash/mruby/pkg/mrb"
)

// Default output extensions per format.
const (
	binExt = ".mrb"
	cExt   = ".c"
)

var (
	// errExitSuccess is returned when an informational flag
	// (--version, --copyright) finished the run; not an error.
	errExitSuccess = errors.New("informational exit")

	// errNoInput is returned when the scan bound no program file;
	// the caller shows usage without a message.
	errNoInput = errors.New("no program file given")
)

// cliArgs is the fully resolved configuration for one run. It is
// built once by parseArgs and read-only afterwards.
type cliArgs struct {
	rfp      *os.File // input; os.Stdin when filename is "-"
	wfp      *os.File // output; nil in syntax-check mode
	filename string   // diagnostic name of the input
	outPath  string   // resolved output path; "-" for stdout
	initName string   // C symbol name, "" for binary output
	ext      string   // default output extension for the format

	checkSyntax bool
	verbose     bool
	debugInfo   bool
}

// close releases both streams. Standard streams are left alone.
func (a *cliArgs) close() {
	if a.rfp != nil && a.rfp != os.Stdin {
		a.rfp.Close()
	}
	if a.wfp != nil && a.wfp != os.Stdout {
		a.wfp.Close()
	}
}

// discardOutput closes and removes a partially written output file.
// This deliberately deviates from mrbc, which leaves the truncated
// file behind; stdout is never touched.
func (a *cliArgs) discardOutput() {
	if a.wfp == nil || a.wfp == os.Stdout {
		return
	}
	a.wfp.Close()
	os.Remove(a.outPath)
	a.wfp = nil
}

// outfileName derives the output path from the input path by
// replacing everything from the last '.' with ext, or appending ext
// when the input has no extension.
func outfileName(infile, ext string) string {
	if i := strings.LastIndexByte(infile, '.'); i >= 0 {
		return infile[:i] + ext
	}
	return infile + ext
}

// parseArgs scans argv (program name excluded) left to right into a
// cliArgs, opening the input stream and, unless in syntax-check mode,
// the output stream. Banner prints go to stdout.
//
// Quirks preserved from mrbc: unknown short switches are silently
// ignored, and positional arguments after the first are dropped.
func parseArgs(argv []string, stdout io.Writer) (*cliArgs, error) {
	a := &cliArgs{ext: binExt}
	outfile := ""
	outfileSet := false

	// Banner prints requested during the scan are deferred and flushed
	// in order on every way out, keeping the scan itself output-free.
	var banners []func(io.Writer)
	flush := func() {
		for _, b := range banners {
			b(stdout)
		}
		banners = nil
	}

scan:
	for _, tok := range argv {
		if len(tok) > 1 && tok[0] == '-' {
			switch tok[1] {
			case 'o':
				if outfileSet {
					flush()
					a.close()
					return nil, fmt.Errorf("an output file is already specified. (%s)", outfile)
				}
				outfile = tok[2:]
				outfileSet = true
			case 'B':
				a.ext = cExt
				a.initName = tok[2:]
				if a.initName == "" {
					flush()
					a.close()
					return nil, errors.New("function name is not specified.")
				}
			case 'c':
				a.checkSyntax = true
			case 'v':
				if !a.verbose {
					banners = append(banners, mrb.ShowVersion)
				}
				a.verbose = true
			case 'g':
				a.debugInfo = true
			case '-':
				switch tok[2:] {
				case "version":
					banners = append(banners, mrb.ShowVersion)
					flush()
					a.close()
					return nil, errExitSuccess
				case "verbose":
					a.verbose = true
				case "copyright":
					banners = append(banners, mrb.ShowCopyright)
					flush()
					a.close()
					return nil, errExitSuccess
				default:
					flush()
					a.close()
					return nil, fmt.Errorf("invalid option %s", tok)
				}
			default:
				// unknown short switch: ignored, as mrbc does
			}
			continue
		}

		if tok == "-" {
			a.filename = "-"
			a.rfp = os.Stdin
			break scan
		}

		// first non-switch token is the program file; later ones
		// are silently ignored
		if a.rfp == nil {
			a.filename = tok
			f, err := os.Open(tok)
			if err != nil {
				flush()
				return nil, fmt.Errorf("cannot open program file. (%s)", tok)
			}
			a.rfp = f
		}
	}
	flush()

	if a.filename == "" {
		return nil, errNoInput
	}
	if a.checkSyntax {
		return a, nil
	}

	if !outfileSet {
		if a.filename == "-" {
			outfile = "-"
		} else {
			outfile = outfileName(a.filename, a.ext)
		}
	}
	a.outPath = outfile
	if outfile == "-" {
		a.wfp = os.Stdout
	} else {
		f, err := os.Create(outfile)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("cannot open output file. (%s)", outfile)
		}
		a.wfp = f
	}
	return a, nil
}

func usage(name string, w io.Writer) {
	switches := []string{
		"switches:",
		"-c           check syntax only",
		"-o<outfile>  place the output into <outfile>",
		"-v           print version number, then turn on verbose mode",
		"-g           produce debugging information",
		"-B<symbol>   binary <symbol> output in C language format",
		"--verbose    run at verbose mode",
		"--version    print the version",
		"--copyright  print the copyright",
	}

	fmt.Fprintf(w, "Usage: %s [switches] programfile\n", name)
	for _, s := range switches {
		fmt.Fprintf(w, "  %s\n", s)
	}
}
