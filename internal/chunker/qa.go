package chunker

import (
	"regexp"
	"strings"
)

// Question header line, e.g.:
// "Ques. 1: What is ...", "Question 2 - ...", "Q: What is ...", "Q: 2: What is ..."
var questionHeaderRe = regexp.MustCompile(`(?i)^\s*(?:Q(?:ues(?:tion)?)?\.?)\s*[:\-–]?\s*(?:No\.|#)?\s*(\d+)?\s*[:\-–]\s*(.+?)\s*$`)

// Answer header line, e.g.:
// "A: It is ...", "Ans: It is ...", "Answer - It is ..."
var answerHeaderRe = regexp.MustCompile(`(?i)^\s*(?:A(?:ns(?:wer)?)?\.?)\s*[:\-–]\s*(.*?)\s*$`)

// qaState is the parser position within a Question/Answer document.
type qaState int

const (
	seekQuestion qaState = iota
	inQuestion
	inAnswer
)

// qaParser is a line-driven state machine over FAQ-formatted text:
// seekQuestion -> inQuestion -> inAnswer, looping back to inQuestion when a
// new question header closes the pair in progress. A question that never
// reaches an answer header is discarded rather than emitted half-formed.
type qaParser struct {
	state  qaState
	num    string
	qLines []string
	aLines []string
	nextID int
	chunks []Chunk
}

// ParseQA parses "Question ... / Answer ..." formatted text into QA chunks.
// Pairs are emitted only when both sides are non-empty after normalization;
// ids increase strictly from 1 regardless of the numbers in the headers.
func ParseQA(text string) []Chunk {
	p := &qaParser{nextID: 1}
	for _, line := range strings.Split(text, "\n") {
		p.step(strings.TrimSuffix(line, "\r"))
	}
	return p.finish()
}

// step consumes one input line and advances the state machine.
func (p *qaParser) step(line string) {
	switch p.state {
	case seekQuestion:
		if m := questionHeaderRe.FindStringSubmatch(line); m != nil {
			p.startQuestion(m)
			p.state = inQuestion
		}
		// anything before the first question header is ignored

	case inQuestion:
		if m := answerHeaderRe.FindStringSubmatch(line); m != nil {
			p.aLines = nil
			if first := strings.TrimSpace(m[1]); first != "" {
				p.aLines = append(p.aLines, first)
			}
			p.state = inAnswer
			return
		}
		if m := questionHeaderRe.FindStringSubmatch(line); m != nil {
			// malformed input: a question with no answer; drop it and
			// restart capture for the new question
			p.startQuestion(m)
			return
		}
		// multi-line question body
		p.qLines = append(p.qLines, strings.TrimSpace(line))

	case inAnswer:
		if m := questionHeaderRe.FindStringSubmatch(line); m != nil {
			p.flush()
			p.startQuestion(m)
			p.state = inQuestion
			return
		}
		if m := answerHeaderRe.FindStringSubmatch(line); m != nil && len(p.aLines) == 0 {
			// answer header split across lines; treat as continuation
			if first := strings.TrimSpace(m[1]); first != "" {
				p.aLines = append(p.aLines, first)
			}
			return
		}
		p.aLines = append(p.aLines, strings.TrimSpace(line))
	}
}

// finish closes the final pair, if any, and returns the parsed chunks.
func (p *qaParser) finish() []Chunk {
	if p.state == inAnswer {
		p.flush()
	}
	return p.chunks
}

func (p *qaParser) startQuestion(m []string) {
	p.num = m[1]
	p.qLines = nil
	if first := strings.TrimSpace(m[2]); first != "" {
		p.qLines = append(p.qLines, first)
	}
}

func (p *qaParser) flush() {
	question := normalizeQA(strings.Join(p.qLines, "\n"))
	answer := normalizeQA(strings.Join(p.aLines, "\n"))
	if question != "" && answer != "" {
		p.chunks = append(p.chunks, Chunk{
			ID:             p.nextID,
			Text:           "Q: " + question + "\nA: " + answer,
			Strategy:       StrategyQA,
			Question:       question,
			Answer:         answer,
			QuestionNumber: p.num,
		})
		p.nextID++
	}
	p.num = ""
	p.qLines = nil
	p.aLines = nil
}

var horizontalSpaceRe = regexp.MustCompile(`[ \t]+`)

// normalizeQA trims outer whitespace and collapses runs of horizontal
// whitespace per line, keeping internal line breaks (answers often span
// lines).
func normalizeQA(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, ln := range lines {
		lines[i] = horizontalSpaceRe.ReplaceAllString(strings.TrimSpace(ln), " ")
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
