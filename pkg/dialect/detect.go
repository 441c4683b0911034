package dialect

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
)

// DetectionResult holds the result of analyzing captured shell output.
type DetectionResult struct {
	Matches      []Match // Dialects that matched, sorted by confidence descending
	SampledLines int     // Number of lines sampled
	BannerLines  int     // Lines before the first prompt of the best match
}

// Match is a dialect whose prompts were found in the sampled output.
type Match struct {
	Dialect     *Dialect
	Confidence  float64 // share of non-empty lines that start with a prompt
	PromptCount int
	SampleLine  string
}

// Best returns the most likely dialect, or nil when nothing matched.
func (r *DetectionResult) Best() *Dialect {
	if r == nil || len(r.Matches) == 0 {
		return nil
	}
	return r.Matches[0].Dialect
}

// Detector identifies which shell produced a piece of output.
type Detector struct {
	dialects   []*Dialect
	sampleSize int
}

// DetectorOption configures the Detector.
type DetectorOption func(*Detector)

// WithSampleSize sets the number of lines to sample (default 200).
func WithSampleSize(n int) DetectorOption {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithDialects replaces the candidate dialects.
func WithDialects(dialects ...*Dialect) DetectorOption {
	return func(d *Detector) {
		if len(dialects) > 0 {
			d.dialects = dialects
		}
	}
}

// NewDetector creates a Detector over the builtin dialects.
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		dialects:   Builtin(),
		sampleSize: 200,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile samples a recorded output file.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines scores every candidate dialect against the given lines.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	if len(lines) > d.sampleSize {
		lines = lines[:d.sampleSize]
	}
	result := &DetectionResult{SampledLines: len(lines)}

	nonEmpty := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return result
	}

	for _, dl := range d.dialects {
		m := Match{Dialect: dl}
		for _, line := range lines {
			if dl.PromptKind(line) == 0 && !dl.IsBarePrompt(line) {
				continue
			}
			if m.PromptCount == 0 {
				m.SampleLine = line
			}
			m.PromptCount++
		}
		if m.PromptCount == 0 {
			continue
		}
		m.Confidence = float64(m.PromptCount) / float64(nonEmpty)
		result.Matches = append(result.Matches, m)
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		if result.Matches[i].Confidence != result.Matches[j].Confidence {
			return result.Matches[i].Confidence > result.Matches[j].Confidence
		}
		return len(result.Matches[i].Dialect.Primary) > len(result.Matches[j].Dialect.Primary)
	})

	if best := result.Best(); best != nil {
		result.BannerLines = MeasureBanner(lines, best)
	}
	return result
}

// MeasureBanner returns how many leading lines precede the first line that
// starts with a prompt marker. When no line does, the whole output is banner.
func MeasureBanner(lines []string, d *Dialect) int {
	for i, line := range lines {
		if d.PromptKind(line) != 0 {
			return i
		}
	}
	return len(lines)
}

// sampleFile reads up to sampleSize lines from a file.
func (d *Detector) sampleFile(_ context.Context, path string) ([]string, error) {
	// #nosec G304 - path is provided by user via CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	lines := make([]string, 0, d.sampleSize)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() && len(lines) < d.sampleSize {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}
