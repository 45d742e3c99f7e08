package chunker

import "testing"

func TestParseQA_TwoPairs(t *testing.T) {
	input := "Q: What is X?\nA: X is Y.\n\nQ: 2: What is Z?\nA: Z is W."

	chunks := ParseQA(input)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	first, second := chunks[0], chunks[1]
	if first.ID != 1 || second.ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", first.ID, second.ID)
	}
	if first.Question != "What is X?" || first.Answer != "X is Y." {
		t.Errorf("first pair = %q / %q", first.Question, first.Answer)
	}
	if first.QuestionNumber != "" {
		t.Errorf("first question number = %q, want empty", first.QuestionNumber)
	}
	if second.QuestionNumber != "2" {
		t.Errorf("second question number = %q, want \"2\"", second.QuestionNumber)
	}
	if first.Strategy != StrategyQA {
		t.Errorf("strategy = %q, want %q", first.Strategy, StrategyQA)
	}
	if first.Text != "Q: What is X?\nA: X is Y." {
		t.Errorf("chunk text = %q", first.Text)
	}
}

func TestParseQA_HeaderVariants(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		question string
		number   string
	}{
		{
			name:     "ques dot with number",
			input:    "Ques. 1: When was it signed?\nAns: Last year.",
			question: "When was it signed?",
			number:   "1",
		},
		{
			name:     "question dash",
			input:    "Question 4 - Who are the parties?\nAnswer - Two companies.",
			question: "Who are the parties?",
			number:   "4",
		},
		{
			name:     "lowercase",
			input:    "q: anything here?\nans: yes.",
			question: "anything here?",
			number:   "",
		},
		{
			name:     "hash number",
			input:    "Q #7: What about disputes?\nAns: Arbitration.",
			question: "What about disputes?",
			number:   "7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ParseQA(tt.input)
			if len(chunks) != 1 {
				t.Fatalf("expected 1 chunk, got %d", len(chunks))
			}
			if chunks[0].Question != tt.question {
				t.Errorf("question = %q, want %q", chunks[0].Question, tt.question)
			}
			if chunks[0].QuestionNumber != tt.number {
				t.Errorf("question number = %q, want %q", chunks[0].QuestionNumber, tt.number)
			}
		})
	}
}

func TestParseQA_OrphanQuestionDiscarded(t *testing.T) {
	input := "Q: 1: Orphan with no answer?\nQ: 2: Real question?\nA: Real answer."

	chunks := ParseQA(input)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Question != "Real question?" {
		t.Errorf("question = %q, want the non-orphaned one", chunks[0].Question)
	}
	// the surviving pair still gets id 1
	if chunks[0].ID != 1 {
		t.Errorf("id = %d, want 1", chunks[0].ID)
	}
}

func TestParseQA_MultilineBodiesAndNormalization(t *testing.T) {
	input := "preamble garbage\n" +
		"Q: What   are the\tdelivery\n" +
		"obligations?\n" +
		"Ans: They include\n" +
		"timely   shipment\n" +
		"\n" +
		"and insurance."

	chunks := ParseQA(input)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if got, want := chunks[0].Question, "What are the delivery\nobligations?"; got != want {
		t.Errorf("question = %q, want %q", got, want)
	}
	if got, want := chunks[0].Answer, "They include\ntimely shipment\n\nand insurance."; got != want {
		t.Errorf("answer = %q, want %q", got, want)
	}
}

func TestParseQA_EmptyAnswerSuppressed(t *testing.T) {
	// answer normalizes to empty, so the pair is dropped
	input := "Q: Something?\nA:  \nQ: Next one?\nA: Fine."

	chunks := ParseQA(input)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Question != "Next one?" {
		t.Errorf("question = %q", chunks[0].Question)
	}
}

func TestParseQA_NoQuestions(t *testing.T) {
	if got := ParseQA("just some prose\nwith no headers at all"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := ParseQA(""); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}
