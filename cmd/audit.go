package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/frahmantamala/company-authz/internal/audit"
	auditPostgres "github.com/frahmantamala/company-authz/internal/audit/postgres"
	"github.com/frahmantamala/company-authz/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	auditFrom         string
	auditTo           string
	auditSecurityOnly bool
	auditActorID      int64
	auditCompanyID    int64
	auditLimit        int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit log",
	Long:  `Print audit log entries as JSON lines, newest first, for compliance review.`,
	RunE:  runAuditQuery,
}

func init() {
	auditCmd.Flags().StringVar(&auditFrom, "from", "", "RFC3339 lower bound on occurred_at")
	auditCmd.Flags().StringVar(&auditTo, "to", "", "RFC3339 upper bound on occurred_at")
	auditCmd.Flags().BoolVar(&auditSecurityOnly, "security-only", false, "only security events")
	auditCmd.Flags().Int64Var(&auditActorID, "actor", 0, "filter by actor user id")
	auditCmd.Flags().Int64Var(&auditCompanyID, "company", 0, "filter by company id")
	auditCmd.Flags().IntVar(&auditLimit, "limit", audit.DefaultQueryLimit, "maximum number of entries")
}

func runAuditQuery(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	filter, err := auditFilterFromFlags()
	if err != nil {
		return err
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := audit.NewService(nil, auditPostgres.NewQueryRepository(db), nil, audit.Options{}, logger.LoggerWrapper())
	entries, err := svc.Query(context.Background(), filter)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", len(entries))
	return nil
}

func auditFilterFromFlags() (audit.Filter, error) {
	q := url.Values{}
	if auditFrom != "" {
		q.Set("from", auditFrom)
	}
	if auditTo != "" {
		q.Set("to", auditTo)
	}
	if auditSecurityOnly {
		q.Set("security_only", "true")
	}
	if auditActorID != 0 {
		q.Set("actor_id", strconv.FormatInt(auditActorID, 10))
	}
	q.Set("limit", strconv.Itoa(auditLimit))

	filter, err := audit.FilterFromQuery(q)
	if err != nil {
		return filter, err
	}
	if auditCompanyID != 0 {
		filter.CompanyID = audit.ID(auditCompanyID)
	}
	return filter, nil
}
