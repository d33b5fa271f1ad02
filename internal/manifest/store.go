package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/flock"

	"github.com/compose-network/proxy-deployer/internal/domain"
	"github.com/compose-network/proxy-deployer/internal/logger"
)

const lockRetryDelay = 50 * time.Millisecond

// Store persists one Manifest per network as a JSON file. Every
// read-modify-write sequence runs under an exclusive file lock, so
// concurrent callers (same process or different processes) targeting the
// same network serialize their fetch-or-deploy decisions.
type Store struct {
	path      string
	networkID uint64
	lock      *flock.Flock
	logger    *slog.Logger
}

// NewStore creates a store for the given network under dir. The manifest
// lives at <dir>/<networkID>.json, its lock file next to it.
func NewStore(dir string, networkID uint64) *Store {
	path := filepath.Join(dir, fmt.Sprintf("%d.json", networkID))

	return &Store{
		path:      path,
		networkID: networkID,
		lock:      flock.New(path + ".lock"),
		logger:    logger.Named("manifest_store"),
	}
}

// Path returns the manifest file location.
func (s *Store) Path() string {
	return s.path
}

// Read returns a snapshot of the manifest, taking the lock for the duration
// of the read.
func (s *Store) Read(ctx context.Context) (*Manifest, error) {
	var snapshot *Manifest

	err := s.withLock(ctx, func(m *Manifest) (bool, error) {
		snapshot = m
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// FetchOrDeployAdmin returns the recorded admin deployment, deploying one
// via deploy if none exists yet. The lock is held across the deployment so
// two concurrent callers can never both observe an empty manifest and each
// create an admin.
func (s *Store) FetchOrDeployAdmin(ctx context.Context, deploy func(context.Context) (domain.Deployment, error)) (domain.Deployment, error) {
	var result domain.Deployment

	err := s.withLock(ctx, func(m *Manifest) (bool, error) {
		if m.Admin != nil {
			s.logger.With("address", m.Admin.Address.Hex()).Debug("reusing existing proxy admin")
			result = *m.Admin
			return false, nil
		}

		deployment, err := deploy(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to deploy proxy admin: %w", err)
		}

		m.Admin = &deployment
		result = deployment

		s.logger.With("address", deployment.Address.Hex()).Info("proxy admin recorded")

		return true, nil
	})
	if err != nil {
		return domain.Deployment{}, err
	}

	return result, nil
}

// FetchOrDeployImplementation returns the deployment recorded for the given
// creation-bytecode hash, deploying via deploy when the bytecode has never
// been deployed on this network.
func (s *Store) FetchOrDeployImplementation(ctx context.Context, bytecodeHash common.Hash, deploy func(context.Context) (domain.Deployment, error)) (domain.Deployment, error) {
	var result domain.Deployment

	err := s.withLock(ctx, func(m *Manifest) (bool, error) {
		if existing, ok := m.Implementations[bytecodeHash]; ok {
			s.logger.
				With("bytecode_hash", bytecodeHash.Hex()).
				With("address", existing.Address.Hex()).
				Debug("reusing existing implementation")
			result = existing
			return false, nil
		}

		deployment, err := deploy(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to deploy implementation: %w", err)
		}

		m.Implementations[bytecodeHash] = deployment
		result = deployment

		s.logger.
			With("bytecode_hash", bytecodeHash.Hex()).
			With("address", deployment.Address.Hex()).
			Info("implementation recorded")

		return true, nil
	})
	if err != nil {
		return domain.Deployment{}, err
	}

	return result, nil
}

// AppendProxy records a provisioned proxy. Appending the same proxy address
// twice is an error.
func (s *Store) AppendProxy(ctx context.Context, proxy domain.ProxyDeployment) error {
	return s.withLock(ctx, func(m *Manifest) (bool, error) {
		if err := m.appendProxy(proxy); err != nil {
			return false, err
		}
		return true, nil
	})
}

// withLock acquires the exclusive manifest lock, loads the manifest, runs
// fn, persists the manifest when fn reports a mutation, and releases the
// lock on every exit path. Nothing is persisted when fn fails.
func (s *Store) withLock(ctx context.Context, fn func(*Manifest) (bool, error)) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire manifest lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("manifest lock at %s could not be acquired", s.lock.Path())
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.With("err", err.Error()).Error("failed to release manifest lock")
		}
	}()

	m, err := s.load()
	if err != nil {
		return err
	}

	mutated, err := fn(m)
	if err != nil {
		return err
	}

	if !mutated {
		return nil
	}

	return s.persist(m)
}

func (s *Store) load() (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return newManifest(s.networkID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	if m.Version > Version {
		return nil, fmt.Errorf("manifest at %s has schema version %d, this build supports up to %d", s.path, m.Version, Version)
	}
	if m.NetworkID != s.networkID {
		return nil, fmt.Errorf("manifest at %s belongs to network %d, expected %d", s.path, m.NetworkID, s.networkID)
	}
	if m.Implementations == nil {
		m.Implementations = make(map[common.Hash]domain.Deployment)
	}

	return &m, nil
}

func (s *Store) persist(m *Manifest) error {
	content, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(s.path, append(content, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}
