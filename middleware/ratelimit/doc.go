// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny + retry-after, acquire/timeout)
//   - infra: implementações concretas (janela deslizante, semáforo, estatísticas)
//   - ratelimit (este pacote): extração de chave do cliente, headers X-RateLimit-*
//     e middleware de concorrência
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente (header/XFF/IP)
//  2. O handler valida o payload e pede a decisão para a camada application
//  3. Se bloqueado, responde 429 com Retry-After
//  4. Se permitido, segue para o gerador de texto
package ratelimit
