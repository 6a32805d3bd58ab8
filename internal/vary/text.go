package vary

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"unicode"

	"github.com/vigil-run/vigil/internal/backend"
)

// The text-perturbation transforms operate on the "text" field of the input
// payload. They introduce noise that should not change semantic content,
// which makes them the natural probes for behavioural stability hypotheses.

func textOf(payload map[string]any) (string, error) {
	raw, ok := payload["text"]
	if !ok {
		return "", fmt.Errorf(`input has no "text" field`)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf(`input "text" field is %T, want string`, raw)
	}
	return s, nil
}

func withText(payload map[string]any, text string) map[string]any {
	out := backend.CloneMap(payload)
	out["text"] = text
	return out
}

// addTypos applies light typographical noise: adjacent-letter swaps, letter
// deletions, and nearby-letter replacements.
type addTypos struct {
	seed   int64
	ops    []string
	nEdits int
}

func newAddTypos(params map[string]any) (Transform, error) {
	if err := rejectUnknown(params, "seed", "ops", "n_edits"); err != nil {
		return nil, err
	}
	seed, err := intParam(params, "seed", 0)
	if err != nil {
		return nil, err
	}
	ops, err := stringListParam(params, "ops", []string{"swap", "delete", "replace"})
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		if op != "swap" && op != "delete" && op != "replace" {
			return nil, fmt.Errorf("ops may contain only swap, delete, replace; got %q", op)
		}
	}
	nEdits, err := intParam(params, "n_edits", 3)
	if err != nil {
		return nil, err
	}
	if nEdits < 0 {
		return nil, fmt.Errorf("n_edits must be >= 0")
	}
	return &addTypos{seed: int64(seed), ops: ops, nEdits: nEdits}, nil
}

func (t *addTypos) Apply(payload map[string]any) (map[string]any, error) {
	text, err := textOf(payload)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(t.seed))
	chars := []rune(text)

	var alphaPositions []int
	for i, c := range chars {
		if unicode.IsLetter(c) {
			alphaPositions = append(alphaPositions, i)
		}
	}
	if len(alphaPositions) < 2 || t.nEdits == 0 {
		return payload, nil
	}

	for edit := 0; edit < t.nEdits; edit++ {
		op := t.ops[rng.Intn(len(t.ops))]
		i := alphaPositions[rng.Intn(len(alphaPositions))]

		switch op {
		case "swap":
			if j := i + 1; j < len(chars) && unicode.IsLetter(chars[j]) {
				chars[i], chars[j] = chars[j], chars[i]
			}
		case "delete":
			// mark for removal; positions stay stable for later edits
			chars[i] = 0
		case "replace":
			if chars[i] != 0 {
				chars[i] = replacementFor(chars[i], rng)
			}
		}
	}

	var b strings.Builder
	for _, c := range chars {
		if c != 0 {
			b.WriteRune(c)
		}
	}
	return withText(payload, b.String()), nil
}

// replacementFor picks a readable stand-in: vowels swap with vowels,
// consonants shift by one place in the alphabet.
func replacementFor(c rune, rng *rand.Rand) rune {
	const vowelsLower = "aeiou"
	const vowelsUpper = "AEIOU"

	if strings.ContainsRune(vowelsLower, c) {
		return rune(vowelsLower[rng.Intn(len(vowelsLower))])
	}
	if strings.ContainsRune(vowelsUpper, c) {
		return rune(vowelsUpper[rng.Intn(len(vowelsUpper))])
	}
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
		base := rune('a')
		if unicode.IsUpper(c) {
			base = 'A'
		}
		off := int(c-base) + []int{-1, 1}[rng.Intn(2)]
		if off < 0 {
			off = 0
		}
		if off > 25 {
			off = 25
		}
		return base + rune(off)
	}
	return c
}

var spaceRuns = regexp.MustCompile(`[ \t]+`)

// perturbWhitespace rewrites whitespace without changing semantic content.
// Modes: collapse (runs of spaces/tabs to one space, newlines preserved),
// expand (extra spaces at a fraction of existing space positions), tabs
// (replace a fraction of spaces with tabs).
type perturbWhitespace struct {
	mode      string
	seed      int64
	intensity float64
}

func newPerturbWhitespace(params map[string]any) (Transform, error) {
	if err := rejectUnknown(params, "mode", "seed", "intensity"); err != nil {
		return nil, err
	}
	mode, err := stringParam(params, "mode", "collapse")
	if err != nil {
		return nil, err
	}
	if mode != "collapse" && mode != "expand" && mode != "tabs" {
		return nil, fmt.Errorf("mode must be one of collapse, expand, tabs; got %q", mode)
	}
	seed, err := intParam(params, "seed", 0)
	if err != nil {
		return nil, err
	}
	intensity, err := floatParam(params, "intensity", 0.15)
	if err != nil {
		return nil, err
	}
	return &perturbWhitespace{mode: mode, seed: int64(seed), intensity: clamp01(intensity)}, nil
}

func (t *perturbWhitespace) Apply(payload map[string]any) (map[string]any, error) {
	text, err := textOf(payload)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(t.seed))

	switch t.mode {
	case "collapse":
		text = spaceRuns.ReplaceAllString(text, " ")

	case "expand":
		chars := []rune(text)
		positions := spacePositions(chars)
		n := int(float64(len(positions)) * t.intensity)
		rng.Shuffle(len(positions), func(i, j int) {
			positions[i], positions[j] = positions[j], positions[i]
		})
		chosen := positions[:n]
		// insert right-to-left so earlier indices stay valid
		sortDescending(chosen)
		for _, i := range chosen {
			extra := "  "
			if rng.Float64() >= 0.7 {
				extra = "   "
			}
			chars = append(chars[:i], append([]rune(extra), chars[i:]...)...)
		}
		text = string(chars)

	case "tabs":
		chars := []rune(text)
		positions := spacePositions(chars)
		n := int(float64(len(positions)) * t.intensity)
		rng.Shuffle(len(positions), func(i, j int) {
			positions[i], positions[j] = positions[j], positions[i]
		})
		for _, i := range positions[:n] {
			chars[i] = '\t'
		}
		text = string(chars)
	}

	return withText(payload, text), nil
}

func spacePositions(chars []rune) []int {
	var out []int
	for i, c := range chars {
		if c == ' ' {
			out = append(out, i)
		}
	}
	return out
}

func sortDescending(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] > xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

var linebreakRuns = regexp.MustCompile(`\s*\n+\s*`)

// perturbLinebreaks rewrites line and paragraph structure without changing
// semantic content. Modes: insert (replace a fraction of spaces with
// newlines), remove (flatten all linebreaks to single spaces), wrap (re-wrap
// long lines at approximately wrap_width characters).
type perturbLinebreaks struct {
	mode      string
	seed      int64
	intensity float64
	wrapWidth int
}

func newPerturbLinebreaks(params map[string]any) (Transform, error) {
	if err := rejectUnknown(params, "mode", "seed", "intensity", "wrap_width"); err != nil {
		return nil, err
	}
	mode, err := stringParam(params, "mode", "insert")
	if err != nil {
		return nil, err
	}
	if mode != "insert" && mode != "remove" && mode != "wrap" {
		return nil, fmt.Errorf("mode must be one of insert, remove, wrap; got %q", mode)
	}
	seed, err := intParam(params, "seed", 0)
	if err != nil {
		return nil, err
	}
	intensity, err := floatParam(params, "intensity", 0.08)
	if err != nil {
		return nil, err
	}
	wrapWidth, err := intParam(params, "wrap_width", 60)
	if err != nil {
		return nil, err
	}
	if wrapWidth < 1 {
		return nil, fmt.Errorf("wrap_width must be >= 1")
	}
	return &perturbLinebreaks{
		mode:      mode,
		seed:      int64(seed),
		intensity: clamp01(intensity),
		wrapWidth: wrapWidth,
	}, nil
}

func (t *perturbLinebreaks) Apply(payload map[string]any) (map[string]any, error) {
	text, err := textOf(payload)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(t.seed))

	switch t.mode {
	case "remove":
		text = linebreakRuns.ReplaceAllString(text, " ")
		text = strings.TrimSpace(spaceRuns.ReplaceAllString(text, " "))

	case "insert":
		chars := []rune(text)
		positions := spacePositions(chars)
		n := int(float64(len(positions)) * t.intensity)
		rng.Shuffle(len(positions), func(i, j int) {
			positions[i], positions[j] = positions[j], positions[i]
		})
		chosen := positions[:n]
		// replace right-to-left so earlier indices stay valid
		sortDescending(chosen)
		for _, i := range chosen {
			br := "\n"
			if rng.Float64() >= 0.75 {
				br = "\n\n"
			}
			chars = append(chars[:i], append([]rune(br), chars[i+1:]...)...)
		}
		text = string(chars)

	case "wrap":
		var out []string
		for _, block := range strings.Split(text, "\n") {
			out = append(out, wrapLine(block, t.wrapWidth)...)
		}
		text = strings.Join(out, "\n")
	}

	return withText(payload, text), nil
}

// wrapLine breaks one line at the last space at or before width, falling back
// to a hard break when the line has no space to break at.
func wrapLine(line string, width int) []string {
	var out []string
	runes := []rune(line)
	for len(runes) > width {
		cut := -1
		last := width
		if last > len(runes)-1 {
			last = len(runes) - 1
		}
		for i := last; i > 0; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		if cut <= 0 {
			cut = width
		}
		out = append(out, strings.TrimRight(string(runes[:cut]), " \t"))
		runes = []rune(strings.TrimLeft(string(runes[cut:]), " \t"))
	}
	return append(out, string(runes))
}

// defaultHeadlines mimic scraped or formatted documents.
var defaultHeadlines = []string{
	"Breaking: Product feedback report",
	"Customer Review Summary",
	"Excerpt",
	"Internal Memo",
	"Published on 2026-02-10",
	"Read more: https://example.com",
}

// injectHeadline prepends a headline line to the text.
type injectHeadline struct {
	seed      int64
	templates []string
	separator string
}

func newInjectHeadline(params map[string]any) (Transform, error) {
	if err := rejectUnknown(params, "seed", "templates", "separator"); err != nil {
		return nil, err
	}
	seed, err := intParam(params, "seed", 0)
	if err != nil {
		return nil, err
	}
	templates, err := stringListParam(params, "templates", defaultHeadlines)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("templates must be a non-empty list of strings")
	}
	separator, err := stringParam(params, "separator", "\n\n")
	if err != nil {
		return nil, err
	}
	return &injectHeadline{seed: int64(seed), templates: templates, separator: separator}, nil
}

func (t *injectHeadline) Apply(payload map[string]any) (map[string]any, error) {
	text, err := textOf(payload)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(t.seed))
	headline := t.templates[rng.Intn(len(t.templates))]

	return withText(payload, headline+t.separator+text), nil
}

// defaultJunkChars are benign but annoying unicode characters that trigger
// tokenization and segmentation quirks without producing invalid bytes.
var defaultJunkChars = []string{
	"​", // zero width space
	"⁠", // word joiner
	" ", // no-break space
	" ", // narrow no-break space
	"…", // ellipsis
	"“", "”", // smart quotes
}

// insertJunkCharacters sprinkles invisible or typographic unicode characters
// into the text at random positions.
type insertJunkCharacters struct {
	seed  int64
	chars []string
	count int
}

func newInsertJunkCharacters(params map[string]any) (Transform, error) {
	if err := rejectUnknown(params, "seed", "chars", "count"); err != nil {
		return nil, err
	}
	seed, err := intParam(params, "seed", 0)
	if err != nil {
		return nil, err
	}
	chars, err := stringListParam(params, "chars", defaultJunkChars)
	if err != nil {
		return nil, err
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("chars must be a non-empty list of strings")
	}
	count, err := intParam(params, "count", 5)
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("count must be >= 0")
	}
	return &insertJunkCharacters{seed: int64(seed), chars: chars, count: count}, nil
}

func (t *insertJunkCharacters) Apply(payload map[string]any) (map[string]any, error) {
	text, err := textOf(payload)
	if err != nil {
		return nil, err
	}
	if text == "" || t.count == 0 {
		return payload, nil
	}

	rng := rand.New(rand.NewSource(t.seed))
	chars := []rune(text)
	for i := 0; i < t.count; i++ {
		pos := rng.Intn(len(chars) + 1)
		junk := []rune(t.chars[rng.Intn(len(t.chars))])
		chars = append(chars[:pos], append(junk, chars[pos:]...)...)
	}
	return withText(payload, string(chars)), nil
}

// defaultBoilerplate mimics real-world ingestion noise: signatures,
// disclaimers, tracking snippets, forwarded-mail headers.
var defaultBoilerplate = []string{
	"Sent from my iPhone",
	"Disclaimer: This message may contain confidential information.",
	"If you received this in error, please delete it and notify the sender.",
	"Unsubscribe: https://example.com/unsubscribe?id=123",
	"Read on the web: https://example.com/article?utm_source=email&utm_medium=footer",
	"-----Original Message-----",
}

// addBoilerplate appends boilerplate lines to the text.
type addBoilerplate struct {
	seed      int64
	templates []string
	nLines    int
	separator string
}

func newAddBoilerplate(params map[string]any) (Transform, error) {
	if err := rejectUnknown(params, "seed", "templates", "n_lines", "separator"); err != nil {
		return nil, err
	}
	seed, err := intParam(params, "seed", 0)
	if err != nil {
		return nil, err
	}
	templates, err := stringListParam(params, "templates", defaultBoilerplate)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("templates must be a non-empty list of strings")
	}
	nLines, err := intParam(params, "n_lines", 2)
	if err != nil {
		return nil, err
	}
	if nLines < 1 {
		return nil, fmt.Errorf("n_lines must be >= 1")
	}
	separator, err := stringParam(params, "separator", "\n\n")
	if err != nil {
		return nil, err
	}
	return &addBoilerplate{seed: int64(seed), templates: templates, nLines: nLines, separator: separator}, nil
}

func (t *addBoilerplate) Apply(payload map[string]any) (map[string]any, error) {
	text, err := textOf(payload)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(t.seed))

	pool := append([]string(nil), t.templates...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	var chosen []string
	for len(chosen) < t.nLines {
		if len(pool) > 0 {
			chosen = append(chosen, pool[len(pool)-1])
			pool = pool[:len(pool)-1]
		} else {
			chosen = append(chosen, t.templates[rng.Intn(len(t.templates))])
		}
	}

	return withText(payload, text+t.separator+strings.Join(chosen, "\n")), nil
}
