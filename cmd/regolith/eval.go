package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"gorm.io/datatypes"

	"github.com/termfx/regolith"
	"github.com/termfx/regolith/db"
	"github.com/termfx/regolith/models"
)

type evalFlags struct {
	dataFiles []string
	input     string
	inputTerm string
	strict    bool
	v1        bool
	wfCheck   bool
	debugPath string
	verbose   bool
	historyDB string
}

func evalCommand() *cobra.Command {
	flags := &evalFlags{}
	cmd := &cobra.Command{
		Use:   "eval [flags] <query>",
		Short: "Compile the loaded policies and evaluate a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, flags, args[0])
		},
	}
	cmd.Flags().StringArrayVarP(&flags.dataFiles, "data", "d", nil,
		"policy (.rego) or data (.json) file; accepts glob patterns and may repeat")
	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "input document (JSON file)")
	cmd.Flags().StringVar(&flags.inputTerm, "input-term", "", "input document as policy term text")
	cmd.Flags().BoolVar(&flags.strict, "strict", strictDefault(), "strict built-in error mode")
	cmd.Flags().BoolVar(&flags.v1, "v1", false, "v1 syntax compatibility")
	cmd.Flags().BoolVar(&flags.wfCheck, "wf-check", false, "validate tree well-formedness after every pass")
	cmd.Flags().StringVar(&flags.debugPath, "debug-path", "", "directory for per-pass tree dumps")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose compile and unify tracing")
	cmd.Flags().StringVar(&flags.historyDB, "history", os.Getenv("REGOLITH_HISTORY_DB"),
		"sqlite path or libsql URL recording evaluations")
	return cmd
}

func strictDefault() bool {
	return os.Getenv("REGOLITH_STRICT_ERRORS") == "1"
}

func runEval(cmd *cobra.Command, flags *evalFlags, query string) error {
	interp := regolith.New()
	interp.SetV1Compatible(flags.v1)
	interp.SetStrictBuiltInErrors(flags.strict)
	interp.SetWFCheckEnabled(flags.wfCheck)
	interp.SetDebugEnabled(flags.verbose)
	if flags.debugPath != "" {
		interp.SetDebugPath(flags.debugPath)
	}

	files, err := expandFiles(flags.dataFiles)
	if err != nil {
		return err
	}
	digests := digestState{}
	for _, file := range files {
		switch strings.ToLower(filepath.Ext(file)) {
		case ".rego":
			if err := interp.AddModuleFile(file); err != nil {
				return err
			}
			digests.addModule(file)
		case ".json":
			if err := interp.AddDataFile(file); err != nil {
				return err
			}
			digests.addData(file)
		default:
			return fmt.Errorf("unsupported file type: %s", file)
		}
	}

	switch {
	case flags.input != "":
		if err := interp.SetInputFile(flags.input); err != nil {
			return err
		}
		digests.addInput(flags.input)
	case flags.inputTerm != "":
		if err := interp.SetInputTerm(flags.inputTerm); err != nil {
			return err
		}
	}

	started := time.Now()
	result, err := interp.Query(query)
	if err != nil {
		return err
	}
	elapsed := time.Since(started)

	fmt.Fprintln(cmd.OutOrStdout(), result)

	if flags.historyDB != "" {
		if err := recordEvaluation(flags, query, result, digests, elapsed, len(files)); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: history not recorded: %v\n", err)
		}
	}

	// exit code 1 distinguishes undefined from errors (2) and
	// success (0)
	if result == "{}" {
		os.Exit(1)
	}
	if strings.HasPrefix(result, `{"errors"`) {
		os.Exit(2)
	}
	return nil
}

// expandFiles resolves doublestar glob patterns and plain paths,
// deduplicated and sorted for deterministic load order.
func expandFiles(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[{") {
			if !seen[pattern] {
				seen[pattern] = true
				files = append(files, pattern)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				files = append(files, match)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

type digestState struct {
	modules []string
	data    []string
	input   string
}

func (d *digestState) addModule(path string) { d.modules = append(d.modules, fileDigest(path)) }
func (d *digestState) addData(path string)   { d.data = append(d.data, fileDigest(path)) }
func (d *digestState) addInput(path string)  { d.input = fileDigest(path) }

func fileDigest(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func combined(digests []string) string {
	sum := sha256.Sum256([]byte(strings.Join(digests, "\n")))
	return hex.EncodeToString(sum[:])
}

func recordEvaluation(flags *evalFlags, query, result string, digests digestState, elapsed time.Duration, moduleCount int) error {
	gdb, err := db.Connect(flags.historyDB, flags.verbose)
	if err != nil {
		return err
	}

	var errObjs json.RawMessage
	if strings.HasPrefix(result, `{"errors"`) {
		var doc struct {
			Errors json.RawMessage `json:"errors"`
		}
		if json.Unmarshal([]byte(result), &doc) == nil {
			errObjs = doc.Errors
		}
	}

	record := &models.Evaluation{
		ID:             newID(),
		Query:          query,
		Modules:        moduleCount,
		V1Mode:         flags.v1,
		Strict:         flags.strict,
		ModulesDigest:  combined(digests.modules),
		DataDigest:     combined(digests.data),
		InputDigest:    digests.input,
		Result:         result,
		Undefined:      result == "{}",
		Errors:         datatypes.JSON(errObjs),
		DurationMicros: elapsed.Microseconds(),
	}
	return gdb.Create(record).Error
}

func newID() string {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		now := time.Now().UnixNano()
		const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"
		for i := len(buf) - 1; i >= 0; i-- {
			buf[i] = alphabet[now%int64(len(alphabet))]
			now /= int64(len(alphabet))
		}
		return "ev_" + string(buf)
	}
	return "ev_" + hex.EncodeToString(buf)[:16]
}
