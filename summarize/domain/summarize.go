package domain

import (
	"context"
	"strings"
)

// DocumentContext é o recorte da publicação enviado junto com a pergunta.
// Todos os campos são opcionais; null e ausente são equivalentes.
type DocumentContext struct {
	Title    *string `json:"Title,omitempty"`
	Abstract *string `json:"Abstract,omitempty"`
	Link     *string `json:"Link,omitempty"`
}

type Payload struct {
	Question string          `json:"question"`
	Context  DocumentContext `json:"context"`
}

// Validate roda antes da decisão de rate limit: payload inválido não consome vaga.
func (p Payload) Validate() error {
	if strings.TrimSpace(p.Question) == "" {
		return ErrInvalidPayload{Field: "question", Reason: "must not be empty"}
	}
	return nil
}

type Result struct {
	Content string `json:"content"`
}

// TextGenerator produz texto a partir de uma instrução de sistema e da pergunta
// do usuário. Timeout, retries, modelo e autenticação são responsabilidade da
// implementação.
type TextGenerator interface {
	Generate(ctx context.Context, systemInstruction, userQuery string) (string, error)
}

// FormatContext monta o bloco de contexto embutido na instrução de sistema.
// Campos ausentes aparecem vazios.
func FormatContext(c DocumentContext) string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(deref(c.Title))
	b.WriteString(",\nAbstract: ")
	b.WriteString(deref(c.Abstract))
	b.WriteString(",\nLink: ")
	b.WriteString(deref(c.Link))
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
