package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"askmynotes/internal/domain"
)

const chunkSeparator = "\n\n---\n\n"

// NotFoundAnswer is the exact object the model must return when the notes
// do not cover the question.
func NotFoundAnswer(subject string) string {
	return fmt.Sprintf(`{"answer":"Not found in your notes for %s.","citations":[],"confidence":"Low","evidence":[]}`, escapeJSON(subject))
}

// BuildAnswerSystemPrompt binds the model to the retrieved context.
func BuildAnswerSystemPrompt(subject string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are a study assistant for the subject %q.\n", subject))
	sb.WriteString("Answer ONLY using the provided context from the student's notes.\n")
	sb.WriteString("If the context is insufficient to answer the question, respond with EXACTLY this JSON:\n")
	sb.WriteString(NotFoundAnswer(subject))
	sb.WriteString("\n\n")
	sb.WriteString("Otherwise, return a JSON object with these fields:\n")
	sb.WriteString(`- "answer": A clear, helpful answer derived strictly from the context.` + "\n")
	sb.WriteString(`- "citations": An array of objects, each with "file" (string), "page" (number or null), "chunk" (number, the Index of the chunk label).` + "\n")
	sb.WriteString(`- "confidence": One of "High", "Medium", or "Low" based on how well the context supports the answer.` + "\n")
	sb.WriteString(`- "evidence": An array of relevant verbatim snippets from the context that support the answer.` + "\n\n")
	sb.WriteString("Return ONLY valid JSON. No markdown fences, no extra text.")
	return sb.String()
}

// BuildStudySystemPrompt describes the study-set contract.
func BuildStudySystemPrompt(subject string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are a study question generator for the subject %q.\n", subject))
	sb.WriteString("Using ONLY the provided context from student notes, generate study questions.\n\n")
	sb.WriteString("Return ONLY a valid JSON object with these fields:\n")
	sb.WriteString(fmt.Sprintf(`- "mcqs": An array of exactly %d multiple-choice questions, each with:`+"\n", StudyMCQCount))
	sb.WriteString(`  - "question": The question text.` + "\n")
	sb.WriteString(`  - "options": An array of 4 option strings ["A. ...", "B. ...", "C. ...", "D. ..."].` + "\n")
	sb.WriteString(`  - "correct": The correct option letter ("A", "B", "C", or "D").` + "\n")
	sb.WriteString(`  - "explanation": A brief explanation of the correct answer.` + "\n")
	sb.WriteString(`  - "citation": An object with "file" (string), "page" (number or null), "chunk" (number).` + "\n")
	sb.WriteString(fmt.Sprintf(`- "shortAnswers": An array of exactly %d short-answer questions, each with:`+"\n", StudyShortAnswerCount))
	sb.WriteString(`  - "question": The question text.` + "\n")
	sb.WriteString(`  - "expectedAnswer": A concise expected answer.` + "\n")
	sb.WriteString(`  - "citation": An object with "file" (string), "page" (number or null), "chunk" (number).` + "\n\n")
	sb.WriteString("Return ONLY valid JSON. No markdown fences, no extra text.")
	return sb.String()
}

// BuildContext labels every retrieved chunk with its provenance.
func BuildContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return "(no matching notes)"
	}
	parts := make([]string, len(results))
	for i, r := range results {
		meta := r.Chunk.Metadata
		name := meta.SourceName
		if name == "" {
			name = "unknown"
		}
		page := "N/A"
		if meta.Page > 0 {
			page = strconv.Itoa(meta.Page)
		}
		parts[i] = fmt.Sprintf("[Chunk %d | File: %s | Page: %s | Index: %d]\n%s", i+1, name, page, meta.ChunkIndex, r.Chunk.Content)
	}
	return strings.Join(parts, chunkSeparator)
}

// BuildAnswerPrompt is the user turn carrying context and question.
func BuildAnswerPrompt(results []domain.SearchResult, question string) string {
	return "CONTEXT:\n" + BuildContext(results) + "\n\nQUESTION: " + question
}

// BuildStudyPrompt is the user turn for study-set generation.
func BuildStudyPrompt(results []domain.SearchResult, topic string) string {
	return "CONTEXT:\n" + BuildContext(results) + "\n\nTOPIC: " + topic + "\n\nGenerate study questions now."
}

// escapeJSON escapes s for embedding inside a JSON string literal.
func escapeJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	b := bytes.TrimSpace(buf.Bytes())
	return string(b[1 : len(b)-1])
}
