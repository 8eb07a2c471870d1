// Package prompt assembles the instruction text and ordered content blocks
// sent to the vision model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/sells-group/swing-coach/internal/model"
	"github.com/sells-group/swing-coach/pkg/anthropic"
)

// historySummaryLen caps each prior-swing summary line in the prompt.
const historySummaryLen = 100

// Build produces the analysis prompt for the supplied positions, annotation
// context, and recent history. Positions keep upload order. The progression
// section exists if and only if history is non-empty.
func Build(positions []model.Position, ann model.Annotation, history []model.AnalysisRecord) string {
	names := make([]string, len(positions))
	for i, p := range positions {
		names[i] = string(p)
	}
	positionsStr := strings.Join(names, ", ")

	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert golf instructor analyzing swing images. "+
		"I'm providing %d image(s) showing the following swing position(s): %s.\n\n",
		len(positions), positionsStr)

	b.WriteString("Please provide a comprehensive analysis with the following structure:\n\n")

	b.WriteString("1. OVERALL ASSESSMENT\n")
	b.WriteString("   - Rate the swing quality on a scale of 1-10\n")
	b.WriteString("   - Provide a 2-3 sentence summary of the overall swing\n\n")

	b.WriteString("2. POSITION ANALYSIS\n")
	fmt.Fprintf(&b, "   For each image provided (%s), analyze:\n", positionsStr)
	b.WriteString("   - Key observations (posture, alignment, club position, body mechanics)\n")
	b.WriteString("   - What's being done well\n")
	b.WriteString("   - What needs improvement\n\n")

	b.WriteString("3. SPECIFIC ISSUES\n")
	b.WriteString("   List 2-4 specific technical problems in order of priority (most important first)\n\n")

	b.WriteString("4. RECOMMENDATIONS\n")
	b.WriteString("   Provide 3-4 actionable drills or changes to improve the swing\n")

	if block := annotationBlock(ann); block != "" {
		b.WriteString("\n")
		b.WriteString(block)
	}

	if len(history) > 0 {
		b.WriteString("\n5. PROGRESSION\n")
		b.WriteString("   Compare this swing against the golfer's recent swings:\n")
		for _, rec := range history {
			b.WriteString("   - ")
			b.WriteString(historyLine(rec))
			b.WriteString("\n")
		}
		b.WriteString("   Note what has improved, which issues keep recurring, any new issues,")
		b.WriteString(" and progress against the golfer's stated focus area.\n")
	}

	b.WriteString("\nPlease be specific, constructive, and focus on the most impactful improvements. " +
		"Format your response clearly with headers for each section.")

	return b.String()
}

// annotationBlock renders the optional shot context as labeled bullets.
// Returns "" when no field is set.
func annotationBlock(ann model.Annotation) string {
	if ann.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("SHOT CONTEXT:\n")
	if v := strings.TrimSpace(ann.Club); v != "" {
		fmt.Fprintf(&b, "- Club: %s\n", v)
	}
	if v := strings.TrimSpace(ann.ShotOutcome); v != "" {
		fmt.Fprintf(&b, "- Shot outcome: %s\n", v)
	}
	if v := strings.TrimSpace(ann.FocusArea); v != "" {
		fmt.Fprintf(&b, "- Working on: %s\n", v)
	}
	if v := strings.TrimSpace(ann.Notes); v != "" {
		fmt.Fprintf(&b, "- Notes: %s\n", v)
	}
	return b.String()
}

// historyLine renders one prior record as date, rating, optional club and
// outcome, and a truncated summary.
func historyLine(rec model.AnalysisRecord) string {
	parts := []string{rec.CreatedAt.Format("2006-01-02")}

	if rec.Rating != nil {
		parts = append(parts, fmt.Sprintf("rated %d/10", *rec.Rating))
	} else {
		parts = append(parts, "not rated")
	}

	if v := strings.TrimSpace(rec.Club); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(rec.ShotOutcome); v != "" {
		parts = append(parts, v)
	}

	line := strings.Join(parts, ", ")
	if summary := strings.TrimSpace(rec.Summary); summary != "" {
		line += ": " + truncateSummary(summary)
	}
	return line
}

func truncateSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= historySummaryLen {
		return s
	}
	return string(runes[:historySummaryLen]) + "..."
}

// ContentBlocks interleaves an upper-case position label and the image for
// each position in upload order, then appends the prompt text as the final
// block.
func ContentBlocks(positions []model.Position, images map[model.Position]model.EncodedImage, promptText string) []anthropic.ContentBlock {
	blocks := make([]anthropic.ContentBlock, 0, 2*len(positions)+1)
	for _, p := range positions {
		img, ok := images[p]
		if !ok {
			continue
		}
		blocks = append(blocks,
			anthropic.TextBlock(fmt.Sprintf("[%s POSITION]", strings.ToUpper(string(p)))),
			anthropic.ImageBlock(img.MediaType, img.Data),
		)
	}
	blocks = append(blocks, anthropic.TextBlock(promptText))
	return blocks
}
