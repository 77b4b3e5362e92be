package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
	"bitbucket.org/shweretail/shop_backend/utils"
	"bitbucket.org/shweretail/shop_backend/workflow"
	"github.com/shopspring/decimal"
)

func TestEngineLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "shop_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	db := config.GetDB()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetBranchIdInContext(ctx, 1)

	t.Run("reserve release round trip", func(t *testing.T) {
		product := seedProduct(t, ctx, "Round Trip", 10)

		movement, err := models.ReserveStock(ctx, product.ID, decimal.NewFromInt(3),
			models.AdjustmentSourceUser, models.StockRef{})
		if err != nil {
			t.Fatalf("ReserveStock: %v", err)
		}
		if movement.Before.Cmp(decimal.NewFromInt(10)) != 0 || movement.After.Cmp(decimal.NewFromInt(7)) != 0 {
			t.Fatalf("expected 10->7; got %s->%s", movement.Before, movement.After)
		}

		movement, err = models.ReleaseStock(ctx, product.ID, decimal.NewFromInt(3),
			models.AdjustmentSourceUser, models.StockRef{})
		if err != nil {
			t.Fatalf("ReleaseStock: %v", err)
		}
		if movement.Before.Cmp(decimal.NewFromInt(7)) != 0 || movement.After.Cmp(decimal.NewFromInt(10)) != 0 {
			t.Fatalf("expected 7->10; got %s->%s", movement.Before, movement.After)
		}

		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(10)) != 0 {
			t.Fatalf("expected stock restored to 10; got %s", s)
		}
		rows, err := models.AdjustmentsForProduct(ctx, product.ID)
		if err != nil {
			t.Fatalf("AdjustmentsForProduct: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected exactly 2 journal entries; got %d", len(rows))
		}
		if rows[0].BeforeAdjustment.Cmp(rows[1].AfterAdjustment) != 0 ||
			rows[0].AfterAdjustment.Cmp(rows[1].BeforeAdjustment) != 0 {
			t.Fatalf("expected mirror-image journal entries")
		}
	})

	t.Run("reserve fails without overdraw", func(t *testing.T) {
		product := seedProduct(t, ctx, "Scarce", 5)
		_, err := models.ReserveStock(ctx, product.ID, decimal.NewFromInt(8),
			models.AdjustmentSourceUser, models.StockRef{})
		if err == nil {
			t.Fatalf("expected insufficient stock error")
		}
		var insufficient *utils.InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientStockError; got %T: %v", err, err)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(5)) != 0 {
			t.Fatalf("failed reserve must not move stock; got %s", s)
		}
		rows, _ := models.AdjustmentsForProduct(ctx, product.ID)
		if len(rows) != 0 {
			t.Fatalf("failed reserve must not journal; got %d entries", len(rows))
		}
	})

	t.Run("add and remove from cart is idempotent", func(t *testing.T) {
		product := seedProduct(t, ctx, "Cart Cycle", 10)

		env := workflow.AddToCart(ctx, &models.NewSale{
			ProductId: product.ID,
			Quantity:  decimal.NewFromInt(3),
			Type:      models.SaleTypeCart,
			Status:    models.SaleStatusCash,
		})
		if !env.Success {
			t.Fatalf("AddToCart failed: %v", env.Message)
		}
		sale := env.Message.(*models.Sale)
		if sale.Type != models.SaleTypeCart {
			t.Fatalf("expected cart sale; got %s", sale.Type)
		}
		if sale.StockBefore.Cmp(decimal.NewFromInt(10)) != 0 || sale.StockAfter.Cmp(decimal.NewFromInt(7)) != 0 {
			t.Fatalf("expected sale to capture 10->7; got %s->%s", sale.StockBefore, sale.StockAfter)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(7)) != 0 {
			t.Fatalf("expected stock 7 after add; got %s", s)
		}

		env = workflow.RemoveFromCart(ctx, sale.ID)
		if !env.Success {
			t.Fatalf("RemoveFromCart failed: %v", env.Message)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(10)) != 0 {
			t.Fatalf("expected stock back to 10; got %s", s)
		}
		rows, _ := models.AdjustmentsForSale(ctx, sale.ID)
		if len(rows) != 0 {
			t.Fatalf("expected journal rows keyed to the sale removed; got %d", len(rows))
		}
		var debtCount int64
		db.WithContext(ctx).Model(&models.Debt{}).
			Where("reference_type = ? AND reference_id = ?", models.DebtReferenceTypeSale, sale.ID).
			Count(&debtCount)
		if debtCount != 0 {
			t.Fatalf("expected no debt rows after round trip; got %d", debtCount)
		}
		if _, err := models.GetSale(ctx, sale.ID); err == nil {
			t.Fatalf("expected sale hidden after remove")
		}
	})

	t.Run("credit cart sale opens a debtor debt", func(t *testing.T) {
		product := seedProduct(t, ctx, "Credit Line", 10)
		env := workflow.AddToCart(ctx, &models.NewSale{
			ProductId: product.ID,
			Quantity:  decimal.NewFromInt(2),
			Type:      models.SaleTypeCart,
			Status:    models.SaleStatusCredit,
		})
		if !env.Success {
			t.Fatalf("AddToCart failed: %v", env.Message)
		}
		sale := env.Message.(*models.Sale)
		debt, err := models.DebtForReference(ctx, models.DebtReferenceTypeSale, sale.ID)
		if err != nil {
			t.Fatalf("expected debtor debt for credit sale: %v", err)
		}
		if debt.Type != models.DebtTypeDebtor || debt.Status != models.DebtStatusUnpaid {
			t.Fatalf("expected unpaid debtor debt; got %s/%s", debt.Type, debt.Status)
		}
		if debt.TotalAmount.Cmp(sale.TotalAmount) != 0 {
			t.Fatalf("debt total %s should match sale total %s", debt.TotalAmount, sale.TotalAmount)
		}
	})

	t.Run("create order fails on insufficient stock without mutation", func(t *testing.T) {
		product := seedProduct(t, ctx, "Thin Stock", 5)
		sale := models.Sale{
			ProductId: product.ID,
			Quantity:  decimal.NewFromInt(8),
			Type:      models.SaleTypeCart,
			Status:    models.SaleStatusCash,
			BranchId:  1,
			Visible:   utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&sale).Error; err != nil {
			t.Fatalf("seed sale: %v", err)
		}

		env := workflow.CreateOrder(ctx, &workflow.NewOrder{SaleIds: []int{sale.ID}})
		if env.Success {
			t.Fatalf("expected insufficient stock failure")
		}
		var after models.Sale
		if err := db.WithContext(ctx).First(&after, sale.ID).Error; err != nil {
			t.Fatalf("reload sale: %v", err)
		}
		if after.Type != models.SaleTypeCart {
			t.Fatalf("failed createOrder must not flip sale type; got %s", after.Type)
		}
		var orderCount int64
		db.WithContext(ctx).Model(&models.OrderSale{}).Where("sale_id = ?", sale.ID).Count(&orderCount)
		if orderCount != 0 {
			t.Fatalf("failed createOrder must not create an order")
		}
	})

	t.Run("proforma confirm then invoice confirm commits stock", func(t *testing.T) {
		product := seedProduct(t, ctx, "Quoted", 20)

		saleIds := make([]int, 0, 2)
		for _, qty := range []int64{2, 3} {
			env := workflow.AddToCart(ctx, &models.NewSale{
				ProductId: product.ID,
				Quantity:  decimal.NewFromInt(qty),
				Type:      models.SaleTypeCart,
				Status:    models.SaleStatusInvoice,
			})
			if !env.Success {
				t.Fatalf("AddToCart failed: %v", env.Message)
			}
			saleIds = append(saleIds, env.Message.(*models.Sale).ID)
		}
		// Invoice-status lines never reserve.
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(20)) != 0 {
			t.Fatalf("quote lines must not reserve stock; got %s", s)
		}

		env := workflow.CreateOrder(ctx, &workflow.NewOrder{SaleIds: saleIds})
		if !env.Success {
			t.Fatalf("CreateOrder failed: %v", env.Message)
		}
		order := env.Message.(*models.Order)
		if order.Type != models.OrderTypeProforma || order.Status != models.OrderStatusPending {
			t.Fatalf("expected proforma/pending; got %s/%s", order.Type, order.Status)
		}

		env = workflow.ConfirmProformaInvoice(ctx, &workflow.ConfirmOrderInput{ID: order.ID})
		if !env.Success {
			t.Fatalf("ConfirmProformaInvoice failed: %v", env.Message)
		}
		confirmed := env.Message.(*models.Order)
		if confirmed.Type != models.OrderTypeInvoice || confirmed.Status != models.OrderStatusDone {
			t.Fatalf("expected invoice/done; got %s/%s", confirmed.Type, confirmed.Status)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(20)) != 0 {
			t.Fatalf("proforma confirmation must not move stock; got %s", s)
		}

		env = workflow.ConfirmInvoice(ctx, &workflow.ConfirmOrderInput{ID: order.ID})
		if !env.Success {
			t.Fatalf("ConfirmInvoice failed: %v", env.Message)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(15)) != 0 {
			t.Fatalf("expected stock 15 after invoice commit; got %s", s)
		}
		sales, err := models.GetSales(ctx, saleIds)
		if err != nil {
			t.Fatalf("GetSales: %v", err)
		}
		for _, sale := range sales {
			if sale.Type != models.SaleTypeSale || sale.Status != models.SaleStatusCash {
				t.Fatalf("expected sale/cash after commit; got %s/%s", sale.Type, sale.Status)
			}
		}
	})

	t.Run("delete credit sale releases stock and drops debt and empty order", func(t *testing.T) {
		product := seedProduct(t, ctx, "Credit Delete", 10)

		env := workflow.AddToCart(ctx, &models.NewSale{
			ProductId: product.ID,
			Quantity:  decimal.NewFromInt(4),
			Type:      models.SaleTypeCart,
			Status:    models.SaleStatusCredit,
		})
		if !env.Success {
			t.Fatalf("AddToCart failed: %v", env.Message)
		}
		sale := env.Message.(*models.Sale)
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(6)) != 0 {
			t.Fatalf("expected stock 6 after credit add; got %s", s)
		}

		env = workflow.CreateOrder(ctx, &workflow.NewOrder{SaleIds: []int{sale.ID}})
		if !env.Success {
			t.Fatalf("CreateOrder failed: %v", env.Message)
		}
		order := env.Message.(*models.Order)

		env = workflow.DeleteSale(ctx, &workflow.DeleteSaleInput{SaleIds: []int{sale.ID}})
		if !env.Success {
			t.Fatalf("DeleteSale failed: %v", env.Message)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(10)) != 0 {
			t.Fatalf("expected stock back to 10; got %s", s)
		}
		if _, err := models.DebtForReference(ctx, models.DebtReferenceTypeSale, sale.ID); err == nil {
			t.Fatalf("expected credit debt removed")
		}
		if _, err := models.GetOrder(ctx, order.ID); err == nil {
			t.Fatalf("expected empty order deleted")
		}
		var count int64
		db.WithContext(ctx).Model(&models.Sale{}).Where("id = ?", sale.ID).Count(&count)
		if count != 0 {
			t.Fatalf("expected sale hard-deleted")
		}
	})

	t.Run("delete order never releases stock", func(t *testing.T) {
		product := seedProduct(t, ctx, "Order Delete", 10)
		env := workflow.AddToCart(ctx, &models.NewSale{
			ProductId: product.ID,
			Quantity:  decimal.NewFromInt(3),
			Type:      models.SaleTypeCart,
			Status:    models.SaleStatusCash,
		})
		if !env.Success {
			t.Fatalf("AddToCart failed: %v", env.Message)
		}
		sale := env.Message.(*models.Sale)
		env = workflow.CreateOrder(ctx, &workflow.NewOrder{SaleIds: []int{sale.ID}})
		if !env.Success {
			t.Fatalf("CreateOrder failed: %v", env.Message)
		}
		order := env.Message.(*models.Order)

		env = workflow.DeleteOrder(ctx, &workflow.DeleteOrderInput{ID: order.ID})
		if !env.Success {
			t.Fatalf("DeleteOrder failed: %v", env.Message)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(7)) != 0 {
			t.Fatalf("deleteOrder must not release stock; got %s", s)
		}
		if _, err := models.GetSale(ctx, sale.ID); err == nil {
			t.Fatalf("expected sale hidden with its order")
		}
	})

	t.Run("purchase intake and reversal", func(t *testing.T) {
		product := seedProduct(t, ctx, "Restocked", 5)
		env := workflow.CreatePurchase(ctx, &models.NewPurchase{
			ProductId:   product.ID,
			Quantity:    decimal.NewFromInt(10),
			BuyingPrice: decimal.NewFromInt(800),
			TotalAmount: decimal.NewFromInt(8000),
			PaidAmount:  decimal.NewFromInt(3000),
		})
		if !env.Success {
			t.Fatalf("CreatePurchase failed: %v", env.Message)
		}
		purchase := env.Message.(*models.Purchase)
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(15)) != 0 {
			t.Fatalf("expected stock 15 after purchase; got %s", s)
		}
		debt, err := models.DebtForReference(ctx, models.DebtReferenceTypePurchase, purchase.ID)
		if err != nil {
			t.Fatalf("expected creditor debt for unpaid portion: %v", err)
		}
		if debt.Type != models.DebtTypeCreditor {
			t.Fatalf("expected creditor debt; got %s", debt.Type)
		}

		env = workflow.UpdatePurchase(ctx, &models.UpdatePurchaseInput{
			ID:      purchase.ID,
			Visible: utils.NewFalse(),
		})
		if !env.Success {
			t.Fatalf("UpdatePurchase failed: %v", env.Message)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(5)) != 0 {
			t.Fatalf("expected stock back to 5 after reversal; got %s", s)
		}
		if _, err := models.DebtForReference(ctx, models.DebtReferenceTypePurchase, purchase.ID); err == nil {
			t.Fatalf("expected creditor debt dropped on reversal")
		}
	})

	t.Run("debt settlement moves the account and reverses exactly", func(t *testing.T) {
		account := models.Account{
			Name:     "Till",
			Type:     models.AccountTypeCash,
			BranchId: 1,
			Visible:  utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&account).Error; err != nil {
			t.Fatalf("seed account: %v", err)
		}
		debt := models.Debt{
			Type:          models.DebtTypeDebtor,
			Status:        models.DebtStatusUnpaid,
			TotalAmount:   decimal.NewFromInt(1000),
			ReferenceType: models.DebtReferenceTypeExpense,
			ReferenceId:   0,
			BranchId:      1,
			Visible:       utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&debt).Error; err != nil {
			t.Fatalf("seed debt: %v", err)
		}

		env := workflow.CreateDebtHistory(ctx, &workflow.NewDebtHistory{
			DebtId:    debt.ID,
			Amount:    decimal.NewFromInt(1000),
			AccountId: account.ID,
		})
		if !env.Success {
			t.Fatalf("CreateDebtHistory failed: %v", env.Message)
		}
		entry := env.Message.(*models.DebtHistory)
		settled, err := models.GetDebt(ctx, debt.ID)
		if err != nil {
			t.Fatalf("GetDebt: %v", err)
		}
		if settled.Status != models.DebtStatusPaid {
			t.Fatalf("expected debt paid; got %s", settled.Status)
		}
		acc, _ := models.GetAccount(ctx, account.ID)
		if acc.Balance.Cmp(decimal.NewFromInt(1000)) != 0 {
			t.Fatalf("expected balance +1000 for debtor settlement; got %s", acc.Balance)
		}

		env = workflow.DeleteDebtHistory(ctx, &workflow.DeleteDebtHistoryInput{ID: entry.ID})
		if !env.Success {
			t.Fatalf("DeleteDebtHistory failed: %v", env.Message)
		}
		reverted, _ := models.GetDebt(ctx, debt.ID)
		if reverted.Status != models.DebtStatusUnpaid || !reverted.PaidAmount.IsZero() {
			t.Fatalf("expected debt back to unpaid/0; got %s/%s", reverted.Status, reverted.PaidAmount)
		}
		acc, _ = models.GetAccount(ctx, account.ID)
		if !acc.Balance.IsZero() {
			t.Fatalf("expected balance back to 0; got %s", acc.Balance)
		}
	})

	t.Run("settlement cannot exceed outstanding debt", func(t *testing.T) {
		debt := models.Debt{
			Type:          models.DebtTypeDebtor,
			Status:        models.DebtStatusUnpaid,
			TotalAmount:   decimal.NewFromInt(300),
			ReferenceType: models.DebtReferenceTypeExpense,
			BranchId:      1,
			Visible:       utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&debt).Error; err != nil {
			t.Fatalf("seed debt: %v", err)
		}
		env := workflow.CreateDebtHistory(ctx, &workflow.NewDebtHistory{
			DebtId: debt.ID,
			Amount: decimal.NewFromInt(400),
		})
		if env.Success {
			t.Fatalf("expected over-settlement to fail")
		}
	})

	t.Run("reconcile finds and repairs orphans", func(t *testing.T) {
		// An orphaned debt: its source sale id does not exist.
		orphan := models.Debt{
			Type:          models.DebtTypeDebtor,
			Status:        models.DebtStatusUnpaid,
			TotalAmount:   decimal.NewFromInt(100),
			ReferenceType: models.DebtReferenceTypeSale,
			ReferenceId:   99999999,
			BranchId:      1,
			Visible:       utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&orphan).Error; err != nil {
			t.Fatalf("seed orphan debt: %v", err)
		}

		report, err := workflow.Reconcile(ctx, true)
		if err != nil {
			t.Fatalf("Reconcile dry-run: %v", err)
		}
		if report.OrphanedDebts < 1 {
			t.Fatalf("expected dry-run to count the orphan debt")
		}

		report, err = workflow.Reconcile(ctx, false)
		if err != nil {
			t.Fatalf("Reconcile repair: %v", err)
		}
		if report.OrphanedDebts < 1 {
			t.Fatalf("expected repair to hide the orphan debt")
		}
		if _, err := models.GetDebt(ctx, orphan.ID); err == nil {
			t.Fatalf("expected orphan debt hidden after repair")
		}
	})

	t.Run("delete sales of a deleted order restores stock", func(t *testing.T) {
		product := seedProduct(t, ctx, "Stranded Stock", 10)
		env := workflow.AddToCart(ctx, &models.NewSale{
			ProductId: product.ID,
			Quantity:  decimal.NewFromInt(3),
			Type:      models.SaleTypeCart,
			Status:    models.SaleStatusCash,
		})
		if !env.Success {
			t.Fatalf("AddToCart failed: %v", env.Message)
		}
		sale := env.Message.(*models.Sale)
		env = workflow.CreateOrder(ctx, &workflow.NewOrder{SaleIds: []int{sale.ID}})
		if !env.Success {
			t.Fatalf("CreateOrder failed: %v", env.Message)
		}
		order := env.Message.(*models.Order)

		// The order delete hides the sale without touching stock; the
		// sale delete is the only path left to give the stock back.
		env = workflow.DeleteOrder(ctx, &workflow.DeleteOrderInput{ID: order.ID})
		if !env.Success {
			t.Fatalf("DeleteOrder failed: %v", env.Message)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(7)) != 0 {
			t.Fatalf("deleteOrder must not release stock; got %s", s)
		}

		env = workflow.DeleteSale(ctx, &workflow.DeleteSaleInput{SaleIds: []int{sale.ID}})
		if !env.Success {
			t.Fatalf("DeleteSale after DeleteOrder failed: %v", env.Message)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(10)) != 0 {
			t.Fatalf("expected stock restored to 10; got %s", s)
		}
		var count int64
		db.WithContext(ctx).Model(&models.Sale{}).Where("id = ?", sale.ID).Count(&count)
		if count != 0 {
			t.Fatalf("expected sale hard-deleted")
		}
	})

	t.Run("delete sale after cart removal does not release twice", func(t *testing.T) {
		product := seedProduct(t, ctx, "Single Release", 10)
		env := workflow.AddToCart(ctx, &models.NewSale{
			ProductId: product.ID,
			Quantity:  decimal.NewFromInt(3),
			Type:      models.SaleTypeCart,
			Status:    models.SaleStatusCash,
		})
		if !env.Success {
			t.Fatalf("AddToCart failed: %v", env.Message)
		}
		sale := env.Message.(*models.Sale)

		env = workflow.RemoveFromCart(ctx, sale.ID)
		if !env.Success {
			t.Fatalf("RemoveFromCart failed: %v", env.Message)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(10)) != 0 {
			t.Fatalf("expected stock back at 10 after removal; got %s", s)
		}

		// The hidden cart line already gave its stock back.
		env = workflow.DeleteSale(ctx, &workflow.DeleteSaleInput{SaleIds: []int{sale.ID}})
		if !env.Success {
			t.Fatalf("DeleteSale failed: %v", env.Message)
		}
		if s := productStock(t, ctx, product.ID); s.Cmp(decimal.NewFromInt(10)) != 0 {
			t.Fatalf("expected stock unchanged at 10; got %s", s)
		}
	})

	t.Run("dispatcher reclaims a stale processing record", func(t *testing.T) {
		t.Setenv("PUBSUB_PROJECT_ID", "")
		t.Setenv("GOOGLE_CLOUD_PROJECT", "")
		t.Setenv("PUBSUB_TOPIC", "")

		staleAt := time.Now().UTC().Add(-10 * time.Minute)
		deadWorker := "dispatcher-gone"
		rec := models.OutboxRecord{
			OccurredAt:    staleAt,
			ReferenceId:   1,
			ReferenceType: "sale",
			Action:        models.OutboxActionCreate,
			PublishStatus: models.OutboxPublishStatusProcessing,
			LockedAt:      &staleAt,
			LockedBy:      &deadWorker,
			CorrelationId: "stale-lock-test",
		}
		if err := db.WithContext(ctx).Create(&rec).Error; err != nil {
			t.Fatalf("seed outbox record: %v", err)
		}

		d := &workflow.OutboxDispatcher{
			DB:          db,
			Logger:      config.GetLogger(),
			WorkerID:    "dispatcher-test",
			BatchSize:   10,
			Interval:    50 * time.Millisecond,
			LockTTL:     30 * time.Second,
			MaxAttempts: 8,
		}
		runCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		go d.Run(runCtx)

		// Publishing fails without a pubsub project, so the reclaimed
		// record lands in FAILED with one attempt recorded.
		deadline := time.Now().Add(3 * time.Second)
		for {
			var got models.OutboxRecord
			if err := db.WithContext(ctx).First(&got, rec.ID).Error; err != nil {
				t.Fatalf("reload outbox record: %v", err)
			}
			if got.PublishStatus == models.OutboxPublishStatusFailed {
				if got.PublishAttempts != 1 {
					t.Fatalf("expected 1 publish attempt; got %d", got.PublishAttempts)
				}
				if got.LockedBy != nil {
					t.Fatalf("expected lock cleared; still held by %s", *got.LockedBy)
				}
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("stale PROCESSING record was never reclaimed; status %s", got.PublishStatus)
			}
			time.Sleep(50 * time.Millisecond)
		}
	})
}

func seedProduct(t *testing.T, ctx context.Context, name string, stock int64) *models.Product {
	t.Helper()
	env := workflow.CreateProduct(ctx, &models.NewProduct{
		Name:         fmt.Sprintf("%s %d", name, time.Now().UnixNano()),
		Stock:        decimal.NewFromInt(stock),
		BuyingPrice:  decimal.NewFromInt(700),
		SellingPrice: decimal.NewFromInt(1000),
		BranchId:     1,
	})
	if !env.Success {
		t.Fatalf("CreateProduct failed: %v", env.Message)
	}
	return env.Message.(*models.Product)
}

func productStock(t *testing.T, ctx context.Context, productId int) decimal.Decimal {
	t.Helper()
	product, err := models.GetProduct(ctx, productId)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	return product.Stock
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("shop-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=shop_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
