package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"-"`
	TimedOut bool          `json:"timed_out,omitempty"`
}

type TestRun struct {
	Name   string    `json:"name"`
	Args   []string  `json:"args,omitempty"`
	Result Execution `json:"result"`
}

// Golden is the on-disk record of a program's expected behaviour.
type Golden struct {
	SourceHash string    `json:"source_hash"`
	Runs       []TestRun `json:"runs"`
}

type FileTestResult struct {
	File    string `json:"file"`
	Status  string `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string `json:"message,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

var (
	targetBinary   = flag.String("target", "./spi", "Path to the spi binary to test.")
	generateGolden = flag.Bool("generate-golden", false, "Write golden files for the matched sources instead of testing.")
	testFiles      = flag.String("test-files", "tests/*.pas", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each run.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
)

// runConfigs are the invocations recorded for every program.
var runConfigs = []TestRun{
	{Name: "text"},
	{Name: "json", Args: []string{"--format=json"}},
	{Name: "ast", Args: []string{"--dump-ast"}},
	{Name: "fold", Args: []string{"-Ffold"}},
}

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	if *generateGolden {
		for _, file := range files {
			if err := writeGolden(ctx, file); err != nil {
				log.Fatalf("%s[ERROR]%s %s: %v\n", cRed, cNone, file, err)
			}
			log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, getJSONPath(file))
		}
		return
	}

	results := runSuite(ctx, files)
	printSummary(results)
	writeJSONReport(results)
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			os.Exit(1)
		}
	}
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func record(ctx context.Context, file string) []TestRun {
	runs := make([]TestRun, len(runConfigs))
	for i, rc := range runConfigs {
		args := append(append([]string{}, rc.Args...), file)
		runs[i] = TestRun{Name: rc.Name, Args: rc.Args, Result: executeCommand(ctx, *targetBinary, args...)}
	}
	return runs
}

func writeGolden(ctx context.Context, file string) error {
	fileHash, err := hashFile(file)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(Golden{SourceHash: fileHash, Runs: record(ctx, file)}, "", "  ")
	if err != nil {
		return err
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(getJSONPath(file), data, 0644)
}

func runSuite(ctx context.Context, files []string) []*FileTestResult {
	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(ctx, file)
			}
		}()
	}

	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})
	return allResults
}

func testFile(ctx context.Context, file string) *FileTestResult {
	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if err != nil {
		return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file; run with --generate-golden"}
	}
	var golden Golden
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	fileHash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to hash source file: %v", err)}
	}
	if fileHash != golden.SourceHash {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Source changed since the golden file was written"}
	}

	return compareRuns(file, golden.Runs, record(ctx, file))
}

func compareRuns(file string, want, got []TestRun) *FileTestResult {
	var diffs strings.Builder
	gotByName := make(map[string]TestRun)
	for _, run := range got {
		gotByName[run.Name] = run
	}

	for _, wantRun := range want {
		gotRun, ok := gotByName[wantRun.Name]
		if !ok {
			fmt.Fprintf(&diffs, "Run '%s' missing.\n", wantRun.Name)
			continue
		}
		if gotRun.Result.TimedOut {
			fmt.Fprintf(&diffs, "Run '%s' timed out.\n", wantRun.Name)
			continue
		}
		if d := cmp.Diff(wantRun.Result, gotRun.Result); d != "" {
			fmt.Fprintf(&diffs, "Run '%s' mismatch (-golden +target):\n%s", wantRun.Name, d)
		}
	}

	if diffs.Len() > 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output or exit code mismatch", Diff: diffs.String()}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "All runs matched"}
}

// executeCommand runs a command with a timeout and captures its output
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	execResult := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if ctx.Err() == context.DeadlineExceeded {
		execResult.TimedOut = true
		execResult.ExitCode = -1
	} else if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			execResult.ExitCode = exitErr.ExitCode()
		} else {
			execResult.ExitCode = -2
			execResult.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return execResult
}

func expandGlobPatterns(patterns string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func printSummary(results []*FileTestResult) {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Status]++
		color := cGreen
		switch r.Status {
		case "FAIL", "ERROR":
			color = cRed
		case "SKIP":
			color = cYellow
		}
		fmt.Printf("%s[%s]%s %s: %s\n", color, r.Status, cNone, r.File, r.Message)
		if r.Diff != "" {
			fmt.Println(r.Diff)
		}
	}
	fmt.Printf("\n%s%sSummary:%s %d passed, %d failed, %d errors, %d skipped\n",
		cBold, cCyan, cNone, counts["PASS"], counts["FAIL"], counts["ERROR"], counts["SKIP"])
}

func writeJSONReport(results []*FileTestResult) {
	resultsMap := make(map[string]*FileTestResult, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}
	data, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[WARN]%s Failed to marshal JSON report: %v\n", cYellow, cNone, err)
		return
	}
	outputFile := *outputJSON
	if *jsonDir != "" {
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		log.Printf("%s[WARN]%s Failed to write JSON report %s: %v\n", cYellow, cNone, outputFile, err)
	}
}
