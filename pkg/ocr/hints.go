package ocr

import (
	"regexp"
	"strings"
)

var (
	figureCaptionPattern = regexp.MustCompile(`(?im)^\s*(?:figure|fig\.?)\s*\d+[.:]?\s*(.*)$`)
	tableCaptionPattern  = regexp.MustCompile(`(?im)^\s*table\s*\d+[.:]?\s*(.*)$`)
)

// figureType classifies a figure caption into a coarse category based on
// keywords commonly found in scientific publications.
func figureType(caption string) string {
	lower := strings.ToLower(caption)
	switch {
	case strings.Contains(lower, "micrograph") || strings.Contains(lower, "microscopy"):
		return "micrograph"
	case strings.Contains(lower, "western") || strings.Contains(lower, "blot"):
		return "blot"
	case strings.Contains(lower, "spectr"):
		return "spectrum"
	case strings.Contains(lower, "flow") || strings.Contains(lower, "diagram") || strings.Contains(lower, "schematic"):
		return "diagram"
	default:
		return "graph"
	}
}

// DetectFigureHints scans page text for figure captions and returns one
// coarse type label per detected figure.
func DetectFigureHints(text string) []string {
	matches := figureCaptionPattern.FindAllStringSubmatch(text, -1)
	var hints []string
	for _, match := range matches {
		hints = append(hints, figureType(match[1]))
	}
	return hints
}

// DetectTableHints scans page text for table captions.
func DetectTableHints(text string) []string {
	matches := tableCaptionPattern.FindAllStringSubmatch(text, -1)
	var hints []string
	for range matches {
		hints = append(hints, "table")
	}
	return hints
}
