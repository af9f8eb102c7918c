package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"
)

func TestValidatorValidateBasic(t *testing.T) {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)

	testCases := []struct {
		val *Validator
		err bool
		msg string
	}{
		{val: nil, err: true, msg: "nil validator"},
		{val: &Validator{ConsensusKey: key}, err: true, msg: "validator has empty address"},
		{val: &Validator{Address: common.HexToAddress("0x01"), ConsensusKey: key[:3]}, err: true, msg: "validator consensus key has length 3, want 32"},
		{val: &Validator{Address: common.HexToAddress("0x01"), ConsensusKey: key}, err: false},
	}
	for idx, tc := range testCases {
		err := tc.val.ValidateBasic()
		if tc.err {
			if assert.Error(t, err, idx) {
				assert.Equal(t, tc.msg, err.Error(), idx)
			}
		} else {
			assert.NoError(t, err, idx)
		}
	}
}

func TestValidatorCompare(t *testing.T) {
	a := &Validator{Address: common.HexToAddress("0x01"), VotingPower: 10}
	b := &Validator{Address: common.HexToAddress("0x02"), VotingPower: 10}
	c := &Validator{Address: common.HexToAddress("0x00"), VotingPower: 5}

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, -1, b.Compare(c))
	assert.Equal(t, 0, a.Compare(a))
}

func TestValidatorStatusString(t *testing.T) {
	assert.Equal(t, "candidate", StatusCandidate.String())
	assert.Equal(t, "active", StatusActive.String())
	assert.Equal(t, "jailed", StatusJailed.String())
	assert.Equal(t, "inactive", StatusInactive.String())
	assert.Equal(t, "unknown", ValidatorStatus(42).String())
}
