package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/satheeshds/cdaplus/db"
	"github.com/satheeshds/cdaplus/fields"
	"github.com/spf13/cobra"
)

// errInvalidValues makes `fields validate` exit non-zero.
var errInvalidValues = errors.New("values are invalid")

var (
	fieldsContract string
	fieldsOut      string
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Manage dynamic field schemas",
	Long: `Export, import and check dynamic field schemas.

Without --contract the commands work on the global field list.`,
}

var fieldsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a field schema as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		w := cmd.OutOrStdout()
		if fieldsOut != "" {
			f, err := os.Create(fieldsOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return exportFields(cmd.Context(), repo, fieldsScope(), w)
	},
}

var fieldsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Append the fields of a YAML export to a schema",
	Long: `Append the fields of a YAML export to a schema.

Imported fields get new ids and are active. Nothing is written when any
field in the file is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		repo, err := openRepo(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		created, err := importFields(cmd.Context(), repo, fieldsScope(), data)
		if err != nil {
			return err
		}
		for _, f := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", f.ID, f.Type, f.Name)
		}
		return nil
	},
}

var fieldsValidateCmd = &cobra.Command{
	Use:   "validate VALUES.json",
	Short: "Check a JSON object of values against a schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		repo, err := openRepo(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		errs, err := validateValues(cmd.Context(), repo, fieldsScope(), data)
		if err != nil {
			return err
		}
		for _, e := range errs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.FieldID, e.Kind, e.Message)
		}
		if len(errs) > 0 {
			return fmt.Errorf("%w: %d error(s)", errInvalidValues, len(errs))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
	fieldsCmd.AddCommand(fieldsExportCmd, fieldsImportCmd, fieldsValidateCmd)

	fieldsCmd.PersistentFlags().StringVar(&fieldsContract, "contract", "", "contract id (default is the global field list)")
	fieldsExportCmd.Flags().StringVarP(&fieldsOut, "out", "o", "", "output file (default is stdout)")
}

func fieldsScope() string {
	if fieldsContract == "" {
		return fields.GlobalScope
	}
	return fieldsContract
}

// checkScope fails for contract scopes whose contract does not exist.
func checkScope(ctx context.Context, repo db.Repository, scope string) error {
	if scope == fields.GlobalScope {
		return nil
	}
	if _, err := repo.GetContract(ctx, scope); err != nil {
		return fmt.Errorf("contract %s: %w", scope, err)
	}
	return nil
}

func exportFields(ctx context.Context, repo db.Repository, scope string, w io.Writer) error {
	if err := checkScope(ctx, repo, scope); err != nil {
		return err
	}
	list, err := fields.NewCatalog(repo, nil).Fields(ctx, scope)
	if err != nil {
		return err
	}
	b, err := fields.MarshalYAML(scope, list)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func importFields(ctx context.Context, repo db.Repository, scope string, data []byte) ([]fields.DynamicField, error) {
	if err := checkScope(ctx, repo, scope); err != nil {
		return nil, err
	}
	doc, err := fields.UnmarshalYAML(data)
	if err != nil {
		return nil, err
	}
	catalog := fields.NewCatalog(repo, nil)
	return catalog.Import(ctx, scope, doc.Drafts(catalog.Registry()))
}

func validateValues(ctx context.Context, repo db.Repository, scope string, data []byte) ([]fields.ValidationError, error) {
	if err := checkScope(ctx, repo, scope); err != nil {
		return nil, err
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decoding values: %w", err)
	}
	catalog := fields.NewCatalog(repo, nil)
	schema, err := catalog.Fields(ctx, scope)
	if err != nil {
		return nil, err
	}
	return fields.NewValidator(catalog.Registry()).ValidateInput(schema, values), nil
}
