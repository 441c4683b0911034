package transcript

// CollapseBlankPrompts canonicalizes runs of bare primary prompts. A run
// directly followed by a primary prompt with content is kept, since it
// stands for intentionally blank input. Any other run becomes the same
// number of empty lines. Bare continuation prompts end a block and are
// never touched.
func CollapseBlankPrompts(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	var run []Line

	flushBlank := func() {
		for range run {
			out = append(out, Line{})
		}
		run = run[:0]
	}

	for _, l := range lines {
		if l.Prompt == PromptPrimary && l.Bare() {
			run = append(run, l)
			continue
		}
		if l.Prompt == PromptPrimary {
			out = append(out, run...)
			run = run[:0]
		} else {
			flushBlank()
		}
		out = append(out, l)
	}
	flushBlank()
	return out
}
