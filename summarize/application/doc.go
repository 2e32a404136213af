// Package application orquestra um pedido de resumo: valida o payload, pede a
// decisão de rate limit e chama o gerador de texto fora de qualquer lock.
package application
