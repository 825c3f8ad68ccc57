// Comando facturacion: API HTTP de facturación electrónica SRI y migraciones.
//
// Uso:
//
//	facturacion serve            # API sobre PostgreSQL
//	facturacion serve --memory   # API con almacén en memoria (desarrollo)
//	facturacion migrate          # aplica las migraciones embebidas
//	facturacion token --user u1 --role admin
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:           "facturacion",
	Short:         "Facturación electrónica con autorización del SRI",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
