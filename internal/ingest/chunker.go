// Package ingest implements the article-to-hypergraph persistence
// pipeline: deterministic chunking, bounded-parallelism batch processing,
// and atomic per-article persistence of an extraction result.
package ingest

import "strings"

// TargetChunkSize is the approximate character budget per chunk. Actual
// chunk boundaries prefer paragraph, then line, then sentence, then word
// breaks, falling back to a forced split only when a single unit still
// exceeds the budget.
const TargetChunkSize = 800

// Chunk splits text into an ordered list of chunks using a fallback
// cascade: paragraphs are packed up to the target size; a paragraph
// larger than the target is split on lines, then sentences, then words;
// any residue still over budget is force-split at the byte boundary.
// The cascade is deterministic: identical input always yields identical
// chunk boundaries.
func Chunk(text string) []string {
	paragraphs := splitParagraphs(text)
	var units []string
	for _, p := range paragraphs {
		units = append(units, splitOversized(p)...)
	}
	return pack(units)
}

func splitParagraphs(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitOversized breaks a single paragraph down via the fallback
// cascade until every returned unit is at or under TargetChunkSize, or
// no further structural split is possible (word boundaries exhausted),
// in which case it force-splits at the byte budget.
func splitOversized(p string) []string {
	if len(p) <= TargetChunkSize {
		return []string{p}
	}
	lines := splitNonEmpty(p, "\n")
	if len(lines) > 1 {
		var out []string
		for _, l := range lines {
			out = append(out, splitOversized(l)...)
		}
		return out
	}
	sentences := splitSentences(p)
	if len(sentences) > 1 {
		var out []string
		for _, s := range sentences {
			out = append(out, splitOversized(s)...)
		}
		return out
	}
	words := splitNonEmpty(p, " ")
	if len(words) > 1 {
		return packWords(words)
	}
	return forceSplit(p)
}

func splitNonEmpty(s, sep string) []string {
	raw := strings.Split(s, sep)
	var out []string
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// splitSentences breaks on ./!/? followed by whitespace, keeping the
// terminator attached to its sentence.
func splitSentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' || c == '!' || c == '?' {
			end := i + 1
			if end >= len(s) || s[end] == ' ' || s[end] == '\n' || s[end] == '\t' {
				sent := strings.TrimSpace(s[start:end])
				if sent != "" {
					out = append(out, sent)
				}
				start = end
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func packWords(words []string) []string {
	var out []string
	var buf strings.Builder
	for _, w := range words {
		if len(w) > TargetChunkSize {
			if buf.Len() > 0 {
				out = append(out, buf.String())
				buf.Reset()
			}
			out = append(out, forceSplit(w)...)
			continue
		}
		if buf.Len() > 0 && buf.Len()+1+len(w) > TargetChunkSize {
			out = append(out, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(w)
	}
	if buf.Len() > 0 {
		out = append(out, buf.String())
	}
	return out
}

// forceSplit handles a single word (or unbroken run) still over budget
// by cutting at the byte boundary; this is the cascade's last resort.
func forceSplit(s string) []string {
	var out []string
	for len(s) > TargetChunkSize {
		out = append(out, s[:TargetChunkSize])
		s = s[TargetChunkSize:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// pack greedily merges consecutive units (paragraphs, already ≤ target)
// into chunks close to TargetChunkSize without splitting a unit across
// chunks.
func pack(units []string) []string {
	var out []string
	var buf strings.Builder
	for _, u := range units {
		if buf.Len() > 0 && buf.Len()+2+len(u) > TargetChunkSize {
			out = append(out, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(u)
	}
	if buf.Len() > 0 {
		out = append(out, buf.String())
	}
	return out
}
