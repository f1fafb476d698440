package migration

import (
	"strings"

	auditdomain "github.com/smallbiznis/salesengine/internal/audit/domain"
	"github.com/smallbiznis/salesengine/internal/config"
	customerdomain "github.com/smallbiznis/salesengine/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/salesengine/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/salesengine/internal/ledger/domain"
	paymentmethoddomain "github.com/smallbiznis/salesengine/internal/paymentmethod/domain"
	productdomain "github.com/smallbiznis/salesengine/internal/product/domain"
	saledomain "github.com/smallbiznis/salesengine/internal/sale/domain"
	usagedomain "github.com/smallbiznis/salesengine/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		return Migrate(conn, cfg.DBType)
	}),
)

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&usagedomain.User{},
		&usagedomain.Subscription{},
		&usagedomain.FeatureUsage{},
		&productdomain.Product{},
		&customerdomain.Customer{},
		&paymentmethoddomain.PaymentMethod{},
		&saledomain.Sale{},
		&saledomain.SalePayment{},
		&ledgerdomain.Transaction{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&auditdomain.AuditLog{},
	}
}

// Migrate applies the embedded SQL on postgres and AutoMigrate elsewhere.
func Migrate(conn *gorm.DB, dbType string) error {
	if strings.EqualFold(strings.TrimSpace(dbType), "postgres") {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	return conn.AutoMigrate(Models()...)
}
