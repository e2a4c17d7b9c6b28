package crack

import (
	"context"

	"github.com/RowanDark/xorcrack/internal/cipher"
)

// CrackOp recovers the plaintext of single-byte XOR ciphertext. The
// "alphabet" parameter selects the candidate keys ("default" or "full").
type CrackOp struct {
	cipher.BaseOperation
}

func (op *CrackOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	name, _ := cipher.StringParam(params, "alphabet")
	alphabet, err := AlphabetByName(name)
	if err != nil {
		return nil, err
	}
	searcher, err := NewSearcher(DefaultScorer, alphabet)
	if err != nil {
		return nil, err
	}
	return searcher.Crack(input).Plaintext, nil
}

func init() {
	cipher.MustRegisterOperation(&CrackOp{
		BaseOperation: cipher.BaseOperation{
			NameValue:        "crack_single_byte_xor",
			TypeValue:        cipher.OperationTypeAnalyze,
			DescriptionValue: "Recover plaintext of single-byte XOR ciphertext by English letter frequency",
		},
	})
}
