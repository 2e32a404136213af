// utilitário pequeno para formatação de valores numéricos em headers.

package ratelimit

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }
