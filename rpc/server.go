/*
 *  Copyright 2020 KardiaChain
 *  This file is part of the go-kardia library.
 *
 *  The go-kardia library is free software: you can redistribute it and/or modify
 *  it under the terms of the GNU Lesser General Public License as published by
 *  the Free Software Foundation, either version 3 of the License, or
 *  (at your option) any later version.
 *
 *  The go-kardia library is distributed in the hope that it will be useful,
 *  but WITHOUT ANY WARRANTY; without even the implied warranty of
 *  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 *  GNU Lesser General Public License for more details.
 *
 *  You should have received a copy of the GNU Lesser General Public License
 *  along with the go-kardia library. If not, see <http://www.gnu.org/licenses/>.
 */

// Package rpc serves a read-only JSON view of the PoS ledger over HTTP.
package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/Pol-Polina/Anoma/kai/pos"
	"github.com/Pol-Polina/Anoma/kai/storage"
	"github.com/Pol-Polina/Anoma/kai/token"
	"github.com/Pol-Polina/Anoma/lib/log"
	"github.com/Pol-Polina/Anoma/types"
)

type apiError struct {
	status int
	err    error
}

func (e *apiError) Error() string { return e.err.Error() }

func badRequest(format string, args ...interface{}) error {
	return &apiError{status: http.StatusBadRequest, err: errors.Errorf(format, args...)}
}

func statusOf(err error) int {
	var apiErr *apiError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.status
	case errors.Is(err, pos.ErrValidatorNotFound), errors.Is(err, pos.ErrNoParams):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrEpochPruned):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

type handlerFunc func(r *http.Request) (interface{}, error)

// ValidatorSetResponse is the active set at one epoch.
type ValidatorSetResponse struct {
	Epoch            types.Epoch        `json:"epoch"`
	Validators       []*types.Validator `json:"validators"`
	TotalVotingPower types.VotingPower  `json:"total_voting_power"`
}

// BondResponse is a bond and its amount at the requested epoch.
type BondResponse struct {
	Bond   *types.Bond  `json:"bond"`
	Epoch  types.Epoch  `json:"epoch"`
	Amount types.Amount `json:"amount"`
}

// BalanceResponse is the liquid balance of an account.
type BalanceResponse struct {
	Address common.Address `json:"address"`
	Balance types.Amount   `json:"balance"`
}

// Server routes the read endpoints.
type Server struct {
	store  *storage.Store
	pos    pos.ReadOnly
	router *mux.Router
	logger log.Logger
}

// NewServer returns a server reading the committed state of store.
func NewServer(store *storage.Store, logger log.Logger) *Server {
	if logger == nil {
		logger = log.New("module", "rpc")
	}
	s := &Server{
		store:  store,
		pos:    pos.NewReader(store),
		router: mux.NewRouter(),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router.Methods(http.MethodGet).Subrouter()
	r.HandleFunc("/head", s.handle("head", s.head))
	r.HandleFunc("/params", s.handle("params", s.params))
	r.HandleFunc("/validators", s.handle("validators", s.validators))
	r.HandleFunc("/validators/{address}", s.handle("validator", s.validator))
	r.HandleFunc("/validators/{address}/delegators", s.handle("delegators", s.delegators))
	r.HandleFunc("/validators/{address}/slashes", s.handle("slashes", s.slashes))
	r.HandleFunc("/validator_set", s.handle("validator_set", s.validatorSet))
	r.HandleFunc("/bonds/{delegator}/{validator}", s.handle("bond", s.bond))
	r.HandleFunc("/unbonds/{delegator}/{validator}", s.handle("unbonds", s.unbonds))
	r.HandleFunc("/balances/{address}", s.handle("balance", s.balance))
	r.HandleFunc("/blocks/{height}/hash", s.handle("block_hash", s.blockHash))
}

// Handler wraps the router in a CORS handler allowing origins.
func (s *Server) Handler(origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(s.router)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string, origins []string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(origins)}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("RPC server started", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("RPC server stopping", "addr", addr)
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handle(route string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rpcRequestGauge.Inc(1)

		res, err := fn(r)
		if err != nil {
			failedRequestGauge.Inc(1)
			status := statusOf(err)
			if status == http.StatusInternalServerError {
				s.logger.Error("RPC request failed", "route", route, "err", err)
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
		} else {
			successfulRequestGauge.Inc(1)
			writeJSON(w, http.StatusOK, res)
		}

		newRPCServingTimer(route, err == nil).UpdateSince(start)
		rpcServingTimer.UpdateSince(start)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathAddress(r *http.Request, name string) (common.Address, error) {
	s := mux.Vars(r)[name]
	if !common.IsHexAddress(s) {
		return common.Address{}, badRequest("invalid %s address %q", name, s)
	}
	return common.HexToAddress(s), nil
}

// queryEpoch reads the optional epoch parameter, defaulting to the committed
// epoch.
func (s *Server) queryEpoch(r *http.Request) (types.Epoch, error) {
	v := r.URL.Query().Get("epoch")
	if v == "" {
		return s.store.Epoch(), nil
	}
	e, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, badRequest("invalid epoch %q", v)
	}
	return types.Epoch(e), nil
}

func (s *Server) head(r *http.Request) (interface{}, error) {
	head, ok := s.store.Head()
	if !ok {
		return nil, &apiError{status: http.StatusNotFound, err: errors.New("no block committed")}
	}
	return head, nil
}

func (s *Server) params(r *http.Request) (interface{}, error) {
	return s.pos.Params()
}

func (s *Server) validators(r *http.Request) (interface{}, error) {
	return s.pos.Validators()
}

func (s *Server) validator(r *http.Request) (interface{}, error) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return nil, err
	}
	epoch, err := s.queryEpoch(r)
	if err != nil {
		return nil, err
	}
	return s.pos.ValidatorState(addr, epoch)
}

func (s *Server) delegators(r *http.Request) (interface{}, error) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return nil, err
	}
	return s.pos.Delegators(addr)
}

func (s *Server) slashes(r *http.Request) (interface{}, error) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return nil, err
	}
	return s.pos.Slashes(addr)
}

func (s *Server) validatorSet(r *http.Request) (interface{}, error) {
	epoch, err := s.queryEpoch(r)
	if err != nil {
		return nil, err
	}
	set, err := s.pos.ValidatorSet(epoch)
	if err != nil {
		return nil, err
	}
	return &ValidatorSetResponse{
		Epoch:            epoch,
		Validators:       set.Validators,
		TotalVotingPower: set.TotalVotingPower(),
	}, nil
}

func (s *Server) bond(r *http.Request) (interface{}, error) {
	deleg, err := pathAddress(r, "delegator")
	if err != nil {
		return nil, err
	}
	val, err := pathAddress(r, "validator")
	if err != nil {
		return nil, err
	}
	epoch, err := s.queryEpoch(r)
	if err != nil {
		return nil, err
	}
	amount, err := s.pos.BondAt(deleg, val, epoch)
	if err != nil {
		return nil, err
	}
	bond, err := s.pos.BondsOf(deleg, val)
	if err != nil {
		return nil, err
	}
	return &BondResponse{Bond: bond, Epoch: epoch, Amount: amount}, nil
}

func (s *Server) unbonds(r *http.Request) (interface{}, error) {
	deleg, err := pathAddress(r, "delegator")
	if err != nil {
		return nil, err
	}
	val, err := pathAddress(r, "validator")
	if err != nil {
		return nil, err
	}
	unbonds, err := s.pos.Unbonds(deleg, val)
	if err != nil {
		return nil, err
	}
	if unbonds == nil {
		unbonds = types.Unbonds{}
	}
	return unbonds, nil
}

func (s *Server) balance(r *http.Request) (interface{}, error) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return nil, err
	}
	bal, err := token.NewBank(s.store).Balance(addr)
	if err != nil {
		return nil, err
	}
	return &BalanceResponse{Address: addr, Balance: bal}, nil
}

func (s *Server) blockHash(r *http.Request) (interface{}, error) {
	v := mux.Vars(r)["height"]
	height, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, badRequest("invalid height %q", v)
	}
	hash, err := s.store.BlockHash(types.BlockHeight(height))
	if err != nil {
		return nil, &apiError{status: http.StatusNotFound, err: err}
	}
	return hash, nil
}
