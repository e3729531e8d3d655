// Package reference builds human-traceable transaction references such as
// "stark-pay-staging-fund-wallet-1718000000000".
package reference

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"starkpay/internal/models"
)

const Namespace = "stark-pay"

type Generator struct {
	mu     sync.Mutex
	env    string
	now    func() time.Time
	lastMs int64
}

// NewGenerator omits the environment segment for production environments.
func NewGenerator(appEnv string) *Generator {
	env := strings.ToLower(strings.TrimSpace(appEnv))
	switch env {
	case "production", "prod", "live":
		env = ""
	}
	return &Generator{env: env, now: time.Now}
}

func (g *Generator) Generate(txType models.TransactionType) string {
	ms := g.nextMillis()

	var b strings.Builder
	b.WriteString(Namespace)
	b.WriteByte('-')
	if g.env != "" {
		b.WriteString(g.env)
		b.WriteByte('-')
	}
	b.WriteString(strings.ReplaceAll(strings.ToLower(string(txType)), "_", "-"))
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(ms, 10))
	return b.String()
}

// nextMillis never hands out the same millisecond twice from one process.
func (g *Generator) nextMillis() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.lastMs {
		ms = g.lastMs + 1
	}
	g.lastMs = ms
	return ms
}
