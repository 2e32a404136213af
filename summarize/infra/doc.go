// Package infra contém os geradores de texto concretos:
//
//   - GeminiGenerator: cliente REST da API generateContent do Google
//   - ThrottledGenerator: limite global de chamadas ao provedor (token bucket, x/time/rate)
package infra
