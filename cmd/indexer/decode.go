package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deviationScope/internal/config"
	"deviationScope/internal/ledger"
	"deviationScope/internal/model"
	"deviationScope/internal/storage"
	"deviationScope/internal/vault"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	decoderCfg := vault.DecoderConfig{}
	if cfg.Vault != "" {
		decoderCfg.Vault, err = config.ParseAddress("vault", cfg.Vault)
		if err != nil {
			return err
		}
	}
	if cfg.PoolID != "" {
		decoderCfg.PoolID, err = ledger.ParsePoolID(cfg.PoolID)
		if err != nil {
			return fmt.Errorf("pool-id: %w", err)
		}
	}

	decoder, err := vault.NewDecoder(decoderCfg)
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := storage.OpenJSONL(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.OpenJSONL(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.String("vault", cfg.Vault),
		zap.String("pool_id", cfg.PoolID),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, decoded, skipped, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			writeDecodeError(errWriter, model.DecodeError{Error: err.Error()})
			continue
		}
		if len(record.Topics) == 0 {
			failed++
			writeDecodeError(errWriter, model.NewDecodeError(record, "", fmt.Errorf("missing topic0")))
			continue
		}

		if !decoder.CanDecode(record.Topics[0]) || !decoder.Accepts(record) {
			skipped++
			continue
		}

		event, err := decoder.Decode(record)
		if err != nil {
			failed++
			writeDecodeError(errWriter, model.NewDecodeError(record, decoder.EventName(record.Topics[0]), err))
			continue
		}

		if err := outWriter.Write(event); err != nil {
			return err
		}
		decoded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", decoded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func writeDecodeError(writer *storage.JSONLWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
