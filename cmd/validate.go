package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Alnumo/therapy-engine/app"
	"github.com/Alnumo/therapy-engine/config"
	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/infra/logger"
)

var requestPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a single assignment request from a JSON file",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&requestPath, "request", "r", "", "assignment request JSON file")
	if err := validateCmd.MarkFlagRequired("request"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	raw, err := os.ReadFile(requestPath)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	var req model.AssignmentRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("validate-command").Errorf("service close: %v", err)
		}
	}()

	res := svc.Validator.ValidateAssignment(ctx, req)
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	if !res.Success || !res.IsValid {
		os.Exit(1)
	}
	return nil
}
