// Command anamnesisctl validates, hashes, and signs saved Mind JSON
// snapshots produced by anamnesis.SaveMind.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	anamnesis "github.com/ashita-ai/anamnesis"
	"github.com/ashita-ai/anamnesis/internal/config"
	"github.com/ashita-ai/anamnesis/internal/integrity"
)

func main() {
	os.Exit(run0())
}

func run0() int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "anamnesisctl: load config:", err)
		return 1
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, cfg, os.Args[1:]); err != nil {
		logger.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(_ context.Context, logger *slog.Logger, cfg config.Config, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: anamnesisctl <validate|hash|sign|verify> <snapshot.json> [token]")
	}
	cmd, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	switch cmd {
	case "validate":
		root, err := anamnesis.LoadMind(data)
		if err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		logger.Info("snapshot is well-formed", "root_mind_id", root.ID(), "kind", root.Kind())
		return nil

	case "hash":
		root, err := anamnesis.LoadMind(data)
		if err != nil {
			return fmt.Errorf("hash: %w", err)
		}
		merkleRoot, err := merkleRootOf(root)
		if err != nil {
			return fmt.Errorf("hash: %w", err)
		}
		logger.Info("merkle root computed", "root_mind_id", root.ID(), "merkle_root", merkleRoot)
		fmt.Println(merkleRoot)
		return nil

	case "sign":
		root, err := anamnesis.LoadMind(data)
		if err != nil {
			return fmt.Errorf("sign: %w", err)
		}
		merkleRoot, err := merkleRootOf(root)
		if err != nil {
			return fmt.Errorf("sign: %w", err)
		}
		priv, err := loadPrivateKey(cfg.SnapshotSigningKeyPath)
		if err != nil {
			return fmt.Errorf("sign: %w", err)
		}
		token, err := integrity.SignSnapshot(root.ID(), merkleRoot, priv)
		if err != nil {
			return fmt.Errorf("sign: %w", err)
		}
		fmt.Println(token)
		return nil

	case "verify":
		if len(args) < 3 {
			return errors.New("usage: anamnesisctl verify <snapshot.json> <token>")
		}
		root, err := anamnesis.LoadMind(data)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		merkleRoot, err := merkleRootOf(root)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		pub, err := loadPublicKey(cfg.SnapshotVerifyKeyPath)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		if err := integrity.VerifySnapshot(args[2], merkleRoot, pub); err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		logger.Info("snapshot signature verified", "root_mind_id", root.ID())
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// merkleRootOf hashes every locked state reachable from root's own states
// plus its nested minds, in declaration order, and folds them into one
// Merkle root (spec §9's supplemental "content hashing & Merkle batch
// proofs" facility).
func merkleRootOf(root anamnesis.Mind) (string, error) {
	var leaves []string
	var walk func(m anamnesis.Mind) error
	walk = func(m anamnesis.Mind) error {
		for _, s := range m.AllStates() {
			h, err := s.ContentHash()
			if err != nil {
				return err
			}
			leaves = append(leaves, h)
		}
		for _, child := range anamnesis.ChildMinds(m) {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return "", err
	}
	return integrity.BuildMerkleRoot(leaves), nil
}

func loadPrivateKey(path string) (ed25519.PrivateKey, error) {
	if path == "" {
		return nil, errors.New("ANAMNESIS_SNAPSHOT_SIGNING_KEY is not set")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("not a PEM file")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("key is not Ed25519")
	}
	return priv, nil
}

func loadPublicKey(path string) (ed25519.PublicKey, error) {
	if path == "" {
		return nil, errors.New("ANAMNESIS_SNAPSHOT_VERIFY_KEY is not set")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("not a PEM file")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("key is not Ed25519")
	}
	return pub, nil
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
