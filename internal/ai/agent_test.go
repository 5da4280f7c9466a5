package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "SELECT 1", "SELECT 1"},
		{"trailing semicolon", "SELECT 1;", "SELECT 1"},
		{"fenced", "```sql\nSELECT count() FROM trades\n```", "SELECT count() FROM trades"},
		{"fenced no lang", "```\nSELECT 1\n```", "SELECT 1"},
		{"whitespace", "  SELECT 1  ", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractSQL(tt.in))
		})
	}
}

func TestCheckSQL(t *testing.T) {
	assert.NoError(t, checkSQL("SELECT count() FROM trades"))
	assert.NoError(t, checkSQL("SELECT sum(sol_amount) FROM curves.trades WHERE side = 'buy'"))

	assert.Error(t, checkSQL(""))
	assert.Error(t, checkSQL("DROP TABLE trades"))
	assert.Error(t, checkSQL("SELECT 1; DROP TABLE trades"))
	assert.Error(t, checkSQL("SELECT * FROM system.tables"))
	assert.Error(t, checkSQL("INSERT INTO trades VALUES (1)"))
}
