package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSetRatio_Identical(t *testing.T) {
	assert.Equal(t, 1.0, TokenSetRatio("Fornecedor ABC Lda", "fornecedor abc lda"))
}

func TestTokenSetRatio_TokenOrderIndependent(t *testing.T) {
	assert.Equal(t, 1.0, TokenSetRatio("ABC Fornecedor Lda", "Fornecedor Lda ABC"))
}

func TestTokenSetRatio_BankPrefixNoise(t *testing.T) {
	// The supplier name is fully contained in the movement description;
	// the bank's TRF prefix must not drag the score down.
	score := TokenSetRatio("Fornecedor ABC Lda", "TRF FORNECEDOR ABC LDA")
	assert.GreaterOrEqual(t, score, 0.9)
}

func TestTokenSetRatio_Unrelated(t *testing.T) {
	score := TokenSetRatio("Fornecedor ABC Lda", "Pagamento Seguro Automovel")
	assert.Less(t, score, 0.5)
}

func TestTokenSetRatio_Empty(t *testing.T) {
	assert.Equal(t, 0.0, TokenSetRatio("", "TRF FORNECEDOR"))
	assert.Equal(t, 0.0, TokenSetRatio("Fornecedor", ""))
}

func TestTokenSetRatio_MinorTypos(t *testing.T) {
	score := TokenSetRatio("Fornecedor ABC Lda", "FORNECEDR ABC LDA")
	assert.Greater(t, score, 0.8)
	assert.Less(t, score, 1.0)
}
