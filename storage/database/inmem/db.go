// Package inmemdb implements the core repositories in memory. Used by tests and ENV=TEST runs.
package inmemdb

import (
	"context"
	"sync"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/enrollment"
	"github.com/innovalab/center/core/quiz"
	"github.com/innovalab/center/core/resource"
	"github.com/innovalab/center/core/user"
)

type ctxKey int

const txKey ctxKey = 0

type (
	DB struct {
		mutex   sync.RWMutex
		txMutex sync.Mutex // one unit of work at a time
		tables
	}

	tables struct {
		seq         int64 // shared pk sequence
		users       map[int64]user.User
		courses     map[int64]course.Course
		lessons     map[int64]course.Lesson
		resources   map[int64]resource.Resource
		enrollments map[int64]enrollment.Enrollment
		quizzes     map[int64]quiz.Quiz
		questions   map[int64]quiz.Question // Options left empty; see options
		options     map[int64]quiz.Option
		attempts    map[int64]quiz.Attempt
	}
)

func Open() *DB {
	return &DB{tables: newTables()}
}

func newTables() tables {
	return tables{
		users:       make(map[int64]user.User),
		courses:     make(map[int64]course.Course),
		lessons:     make(map[int64]course.Lesson),
		resources:   make(map[int64]resource.Resource),
		enrollments: make(map[int64]enrollment.Enrollment),
		quizzes:     make(map[int64]quiz.Quiz),
		questions:   make(map[int64]quiz.Question),
		options:     make(map[int64]quiz.Option),
		attempts:    make(map[int64]quiz.Attempt),
	}
}

// Flush empties every table.
func (db *DB) Flush() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.tables = newTables()
}

func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

func (t tables) clone() tables {
	c := newTables()
	c.seq = t.seq
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.courses {
		c.courses[k] = v
	}
	for k, v := range t.lessons {
		c.lessons[k] = v
	}
	for k, v := range t.resources {
		c.resources[k] = v
	}
	for k, v := range t.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range t.quizzes {
		c.quizzes[k] = v
	}
	for k, v := range t.questions {
		c.questions[k] = v
	}
	for k, v := range t.options {
		c.options[k] = v
	}
	for k, v := range t.attempts {
		c.attempts[k] = v
	}
	return c
}

type unitOfWork struct {
	db *DB
}

var _ core.UnitOfWork = (*unitOfWork)(nil) // interface compliance check

func NewUnitOfWork(db *DB) *unitOfWork {
	return &unitOfWork{db: db}
}

// Do snapshots every table and restores the snapshot if fn fails. Nested calls join the outer one.
func (uow *unitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey) != nil {
		return fn(ctx)
	}

	uow.db.txMutex.Lock()
	defer uow.db.txMutex.Unlock()

	uow.db.mutex.RLock()
	snapshot := uow.db.tables.clone()
	uow.db.mutex.RUnlock()

	if err := fn(context.WithValue(ctx, txKey, true)); err != nil {
		uow.db.mutex.Lock()
		uow.db.tables = snapshot
		uow.db.mutex.Unlock()
		return err
	}
	return nil
}
