// Package memory is an in-process implementation of the repository
// interfaces. It backs the "memory" database driver and the service tests.
package memory

import (
	"context"
	"sync"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/repository"
)

// Store holds all collections behind one lock. Transactions are serialized
// on txMu and roll back through an undo log carried in the context.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users          map[string]domain.User
	questionnaires map[string]domain.QuestionnaireSubmission
	plans          map[string]domain.Plan
	jobs           map[string]domain.GenerationJob

	// seq records insertion order, used to break timestamp ties.
	seq     map[string]uint64
	nextSeq uint64
}

func New() *Store {
	return &Store{
		users:          map[string]domain.User{},
		questionnaires: map[string]domain.QuestionnaireSubmission{},
		plans:          map[string]domain.Plan{},
		jobs:           map[string]domain.GenerationJob{},
		seq:            map[string]uint64{},
	}
}

func (s *Store) Users() repository.UserRepository                   { return &userRepo{s} }
func (s *Store) Questionnaires() repository.QuestionnaireRepository { return &questionnaireRepo{s} }
func (s *Store) Plans() repository.PlanRepository                   { return &planRepo{s} }
func (s *Store) Jobs() repository.JobRepository                     { return &jobRepo{s} }

type txKey struct{}

type undoLog struct {
	ops []func()
}

// WithTransaction implements repository.Transactor. Nested calls join the
// outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*undoLog); ok {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, txKey{}, log)); err != nil {
		s.mu.Lock()
		for i := len(log.ops) - 1; i >= 0; i-- {
			log.ops[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// recordUndo must be called with s.mu held.
func recordUndo(ctx context.Context, op func()) {
	if log, ok := ctx.Value(txKey{}).(*undoLog); ok {
		log.ops = append(log.ops, op)
	}
}

func (s *Store) stamp(id string) {
	s.nextSeq++
	s.seq[id] = s.nextSeq
}

var _ repository.Transactor = (*Store)(nil)
