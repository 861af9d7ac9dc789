package cmd

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"inet.af/netaddr"

	"github.com/doogleit/hpe-oneview-misc/oa"
	"github.com/doogleit/hpe-oneview-misc/pkg/debugserver"
	"github.com/doogleit/hpe-oneview-misc/provision"
)

// oaSetupCmd represents the oa-setup command
var oaSetupCmd = &cobra.Command{
	Use:   "oa-setup",
	Short: "Configure the Onboard Administrator of a freshly racked enclosure",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		oaIPStr, _ := flags.GetString("oa-ip")
		oaUser, _ := flags.GetString("oa-user")
		oaPassword, _ := flags.GetString("oa-password")
		enclosure, _ := flags.GetString("enclosure")
		rack, _ := flags.GetString("rack")
		assetTag, _ := flags.GetString("asset-tag")
		lastSlot, _ := flags.GetInt("last-slot")
		powerMode, _ := flags.GetString("power-mode")
		auditDir, _ := flags.GetString("audit-dir")
		userSpecs, _ := flags.GetStringArray("add-user")
		groupSpecs, _ := flags.GetStringArray("add-ldap-group")
		debugListen, _ := flags.GetString("debug-listen")

		if oaPassword == "" {
			oaPassword = viper.GetString("oa_password")
		}
		if oaPassword == "" {
			return errors.New("--oa-password (or OVADM_OA_PASSWORD) is required")
		}

		oaIP, err := netaddr.ParseIP(oaIPStr)
		if err != nil {
			return errors.Wrap(err, "parse --oa-ip")
		}
		users, err := parseUsers(userSpecs)
		if err != nil {
			return err
		}
		groups, err := parseLDAPGroups(groupSpecs)
		if err != nil {
			return err
		}

		if debugListen != "" {
			debugserver.Serve(ctx, debugListen, logger)
		}

		client, err := oa.NewClient(oaIPStr, oaUser, oaPassword, oa.Logger(logger))
		if err != nil {
			return err
		}

		res, err := provision.ConfigureOA(ctx, client, provision.OASettings{
			OAIP:          oaIP,
			EnclosureName: enclosure,
			RackName:      rack,
			AssetTag:      assetTag,
			LastSlot:      lastSlot,
			PowerMode:     powerMode,
			Users:         users,
			LDAPGroups:    groups,
			AuditDir:      auditDir,
		}, logger)
		if err != nil {
			return err
		}
		logger.Info("oa setup complete",
			zap.String("site", res.Site), zap.String("audit", res.AuditFile))
		return nil
	},
}

// parseUsers decodes repeated name:password:role flags.
func parseUsers(specs []string) ([]oa.User, error) {
	users := make([]oa.User, 0, len(specs))
	for _, s := range specs {
		parts := strings.SplitN(s, ":", 3)
		if len(parts) != 3 {
			return nil, errors.Errorf("invalid --add-user %q, want name:password:role", s)
		}
		users = append(users, oa.User{Name: parts[0], Password: parts[1], Role: parts[2]})
	}
	return users, nil
}

// parseLDAPGroups decodes repeated name:role flags.
func parseLDAPGroups(specs []string) ([]oa.LDAPGroup, error) {
	groups := make([]oa.LDAPGroup, 0, len(specs))
	for _, s := range specs {
		parts := strings.SplitN(s, ":", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid --add-ldap-group %q, want name:role", s)
		}
		groups = append(groups, oa.LDAPGroup{Name: parts[0], Role: parts[1]})
	}
	return groups, nil
}

func init() {
	oaSetupCmd.Flags().String("oa-ip", "", "address of the primary OA module")
	oaSetupCmd.Flags().String("oa-user", "Administrator", "OA admin user")
	oaSetupCmd.Flags().String("oa-password", "", "OA admin password (or OVADM_OA_PASSWORD)")
	oaSetupCmd.Flags().String("enclosure", "", "enclosure name to apply")
	oaSetupCmd.Flags().String("rack", "", "rack name to record")
	oaSetupCmd.Flags().String("asset-tag", "", "asset tag to apply")
	oaSetupCmd.Flags().Int("last-slot", 16, "highest populated device bay")
	oaSetupCmd.Flags().String("power-mode", "redundant", "enclosure power redundancy mode")
	oaSetupCmd.Flags().String("audit-dir", ".", "directory for the config dump")
	oaSetupCmd.Flags().StringArray("add-user", nil, "local account to add, name:password:role (repeatable)")
	oaSetupCmd.Flags().StringArray("add-ldap-group", nil, "directory group to grant, name:role (repeatable)")
	oaSetupCmd.Flags().String("debug-listen", "", "serve /metrics and /healthcheck on this address while running")
	oaSetupCmd.MarkFlagRequired("oa-ip")
	oaSetupCmd.MarkFlagRequired("enclosure")
	rootCmd.AddCommand(oaSetupCmd)
}
