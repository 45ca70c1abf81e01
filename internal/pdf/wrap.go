package pdf

// wrapText breaks text into lines no wider than maxWidth at the canvas's
// current font. The accumulator is character-by-character so CJK text with
// no word boundaries wraps correctly; newlines in the input force breaks.
// Characters the font cannot measure count as half an em.
func wrapText(c overlayCanvas, text string, fontSize, maxWidth float64) []string {
	var lines []string
	var current []rune
	var width float64

	flush := func() {
		lines = append(lines, string(current))
		current = current[:0]
		width = 0
	}

	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		rw, err := c.RuneWidth(r)
		if err != nil || rw <= 0 {
			rw = 0.5 * fontSize
		}
		if width+rw > maxWidth && len(current) > 0 {
			flush()
		}
		current = append(current, r)
		width += rw
	}
	if len(current) > 0 {
		lines = append(lines, string(current))
	}
	return lines
}
