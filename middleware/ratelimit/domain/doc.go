// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros (com relógio falso) e desacoplar
// a regra da janela deslizante de detalhes de infraestrutura.
package domain
