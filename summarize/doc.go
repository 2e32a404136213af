// Package summarize expõe o resumo de publicações via HTTP (chi):
//
//	GET  /health          sempre 200, sem checagem de origem nem rate limit
//	POST /api/summarize   pergunta + contexto -> {"content": "..."}
//	POST /summarize       alias
//	GET  /api/stats       contadores de decisão (apenas com stats em memória)
//
// A ordem de um pedido é: origem -> concorrência -> decode/validação ->
// rate limit por cliente -> gerador de texto.
package summarize
