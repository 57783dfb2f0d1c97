package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/sense/internal/dataset"
)

func newAssignRolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign-roles",
		Short: "Give sender and receiver characters their own models for the heter pattern",
		Long: `Keep the samples whose roles are exactly one sender and one receiver,
and write them with per-character model settings so that
"sense run --pattern heter" can pit two models against each other.

Examples:
  sense assign-roles --input data/final_data.jsonl --output data/heter.jsonl \
    --sender-model gpt-4o --receiver-model Llama-2-13b-chat-hf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")

			samples, err := dataset.ReadJSONL(input)
			if err != nil {
				return err
			}
			kept := dataset.AssignRoleModels(samples, roleModel(cmd, "sender"), roleModel(cmd, "receiver"))
			if err := dataset.WriteJSONL(output, kept); err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"read": len(samples), "written": len(kept), "output": output})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d of %d samples to %s\n", len(kept), len(samples), output)
			return nil
		},
	}

	cmd.Flags().String("input", "", "JSONL scenario dataset")
	cmd.Flags().String("output", "", "JSONL file to write")
	for _, role := range []string{"sender", "receiver"} {
		cmd.Flags().String(role+"-model", "", "Model of the "+role+" characters")
		cmd.Flags().String(role+"-base-url", "", "API endpoint of the "+role+" model")
		cmd.Flags().String(role+"-api-key", "", "API key of the "+role+" model")
		cmd.Flags().String(role+"-api-type", "openai", "API type of the "+role+" model")
	}
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("sender-model")
	_ = cmd.MarkFlagRequired("receiver-model")
	return cmd
}

func roleModel(cmd *cobra.Command, role string) dataset.RoleModel {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(role + "-" + name)
		return v
	}
	return dataset.RoleModel{
		Model:   get("model"),
		BaseURL: get("base-url"),
		APIKey:  get("api-key"),
		APIType: get("api-type"),
	}
}
