package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"

	"solana-pool-sniper/internal/chain"
	"solana-pool-sniper/internal/domain"
)

var (
	testPayer = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	testSig   = solana.Signature{1, 2, 3, 4}
)

// testTx returns a minimal signed-looking transaction paid by payer.
func testTx(payer solana.PublicKey) *solana.Transaction {
	return &solana.Transaction{
		Signatures: []solana.Signature{testSig},
		Message: solana.Message{
			Header:      solana.MessageHeader{NumRequiredSignatures: 1},
			AccountKeys: []solana.PublicKey{payer},
		},
	}
}

func testBlockhash() domain.BlockhashWithExpiry {
	return domain.BlockhashWithExpiry{LastValidBlockHeight: 100}
}

// fakeBackend scripts node responses.
type fakeBackend struct {
	mu sync.Mutex

	simResult *chain.SimulationResult
	simErr    error
	sendSig   string
	sendErr   error
	// statuses is consumed one per poll; the last entry repeats.
	statuses  []*chain.SignatureStatus
	statusErr error
	heights   []uint64
	heightErr error

	simulateCalls int
	sendCalls     int
	statusCalls   int
	heightCalls   int
}

var _ Backend = (*fakeBackend)(nil)

func (b *fakeBackend) Simulate(context.Context, *solana.Transaction) (*chain.SimulationResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.simulateCalls++
	if b.simErr != nil {
		return nil, b.simErr
	}
	if b.simResult == nil {
		return &chain.SimulationResult{}, nil
	}
	return b.simResult, nil
}

func (b *fakeBackend) Send(context.Context, *solana.Transaction) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendCalls++
	return b.sendSig, b.sendErr
}

func (b *fakeBackend) SignatureStatus(context.Context, string) (*chain.SignatureStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.statusCalls
	b.statusCalls++
	if b.statusErr != nil {
		return nil, b.statusErr
	}
	if len(b.statuses) == 0 {
		return nil, nil
	}
	if i >= len(b.statuses) {
		i = len(b.statuses) - 1
	}
	return b.statuses[i], nil
}

func (b *fakeBackend) BlockHeight(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.heightCalls++
	if b.heightErr != nil {
		return 0, b.heightErr
	}
	if len(b.heights) == 0 {
		return 0, nil
	}
	i := b.statusCalls - 1
	if i < 0 {
		i = 0
	}
	if i >= len(b.heights) {
		i = len(b.heights) - 1
	}
	return b.heights[i], nil
}

func (b *fakeBackend) LatestBlockhash(context.Context) (domain.BlockhashWithExpiry, error) {
	return domain.BlockhashWithExpiry{}, errors.New("not scripted")
}

func (b *fakeBackend) calls() (simulate, send int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.simulateCalls, b.sendCalls
}

// fakeExecutor returns a fixed Result.
type fakeExecutor struct {
	name   string
	result Result
	mu     sync.Mutex
	calls  int
}

func (e *fakeExecutor) Name() string { return e.name }

func (e *fakeExecutor) ExecuteAndConfirm(context.Context, *solana.Transaction, solana.PublicKey, domain.BlockhashWithExpiry) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.result
}

func (e *fakeExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func confirmed(status string) *chain.SignatureStatus {
	return &chain.SignatureStatus{ConfirmationStatus: status}
}
