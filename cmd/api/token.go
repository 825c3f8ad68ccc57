package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/jwt"
)

// newTokenCmd emite un JWT firmado con JWT_SECRET. Los usuarios se administran fuera
// de este servicio; el comando sirve para integraciones y pruebas locales.
func newTokenCmd() *cobra.Command {
	var userID, email, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emite un Bearer Token para la API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != entity.RoleAdmin && role != entity.RoleUser {
				return fmt.Errorf("rol inválido %q: use %s o %s", role, entity.RoleAdmin, entity.RoleUser)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			tok, err := jwt.Generate(cfg.JWT.Secret, userID, email, role, cfg.JWT.Issuer, cfg.JWT.Expiration)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "ID del usuario (obligatorio)")
	cmd.Flags().StringVar(&email, "email", "", "correo del usuario")
	cmd.Flags().StringVar(&role, "role", entity.RoleUser, "admin | user")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
