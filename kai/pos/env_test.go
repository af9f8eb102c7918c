package pos

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/Pol-Polina/Anoma/kai/kaidb/memorydb"
	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/kai/token"
	"github.com/Pol-Polina/Anoma/kai/vp"
	"github.com/Pol-Polina/Anoma/lib/log"
	kmath "github.com/Pol-Polina/Anoma/lib/math"
	"github.com/Pol-Polina/Anoma/types"
)

var (
	val1  = common.HexToAddress("0x1001")
	val2  = common.HexToAddress("0x1002")
	deleg = common.HexToAddress("0xd001")
)

func testParams() Params {
	return Params{
		PipelineLength:      2,
		UnbondingLength:     3,
		ActivationThreshold: kmath.NewFraction(1, 10),
		MinValidatorStake:   100,
		PowerReduction:      1,
		Slashing: SlashingPolicy{
			JailThreshold: kmath.NewFraction(1, 2),
			JailEpochs:    2,
			Reactivation:  ReactivationAutomatic,
		},
	}
}

func testKey(b byte) ed25519.PublicKey {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = b
	return ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
}

type testEnv struct {
	t        *testing.T
	store    *storage.Store
	engine   *Engine
	registry *vp.Registry
	height   types.BlockHeight
	epoch    types.Epoch
}

// newTestEnv commits a genesis block at epoch 0 holding vals and crediting
// every funded account.
func newTestEnv(t *testing.T, params Params, vals []GenesisValidator, funded map[common.Address]types.Amount) *testEnv {
	return newTestEnvWithOptions(t, storage.Options{}, params, vals, funded)
}

func newTestEnvWithOptions(t *testing.T, opts storage.Options, params Params, vals []GenesisValidator, funded map[common.Address]types.Amount) *testEnv {
	store, err := storage.NewStore(memorydb.New(), opts, log.NewNopLogger())
	require.NoError(t, err)
	registry := vp.NewRegistry(vp.AcceptAll)
	gate := vp.NewGate(registry, Address, log.NewNopLogger())
	env := &testEnv{
		t:        t,
		store:    store,
		engine:   NewEngine(store, gate, token.BankFactory, log.NewNopLogger()),
		registry: registry,
	}

	env.height = 1
	require.NoError(t, store.BeginBlock(env.height, 0))
	require.NoError(t, env.engine.InitGenesis(params, vals))
	bank := token.NewBank(store)
	for addr, amount := range funded {
		require.NoError(t, bank.Credit(addr, amount))
	}
	env.commit()
	return env
}

func defaultEnv(t *testing.T) *testEnv {
	return newTestEnv(t, testParams(),
		[]GenesisValidator{{Address: val1, ConsensusKey: testKey(1), Stake: 1000}},
		map[common.Address]types.Amount{deleg: 500})
}

// block opens the next block at epoch, running the boundary when the epoch
// advances.
func (env *testEnv) block(epoch types.Epoch) {
	env.height++
	require.NoError(env.t, env.store.BeginBlock(env.height, epoch))
	if epoch > env.epoch {
		require.NoError(env.t, env.engine.OnEpochBoundary(epoch))
	}
	env.epoch = epoch
}

func (env *testEnv) commit() {
	_, err := env.store.Commit()
	require.NoError(env.t, err)
}

func (env *testEnv) balance(addr common.Address) types.Amount {
	bal, err := token.NewBank(env.store).Balance(addr)
	require.NoError(env.t, err)
	return bal
}

func (env *testEnv) power(addr common.Address, epoch types.Epoch) types.VotingPower {
	power, err := env.engine.VotingPower(addr, epoch)
	require.NoError(env.t, err)
	return power
}

func (env *testEnv) status(addr common.Address, epoch types.Epoch) types.ValidatorStatus {
	v, err := env.engine.ValidatorState(addr, epoch)
	require.NoError(env.t, err)
	return v.Status
}
