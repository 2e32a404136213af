// Package domain define os tipos do resumo de publicações: payload, contexto
// do documento, resultado, erros e o contrato do gerador de texto.
//
// Não depende de net/http nem do provedor de LLM.
package domain
