package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/models"
	"bitbucket.org/shweretail/shop_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
)

// A sale belongs to at most one order; the unique index on the join
// table enforces it and a duplicate-key error surfaces as validation.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

const orderModuleName = "OrderWorkflow"

// salesInRequestOrder rearranges loaded sales to match the id order the
// caller sent, dropping duplicate ids.
func salesInRequestOrder(sales []*models.Sale, ids []int) []*models.Sale {
	byId := make(map[int]*models.Sale, len(sales))
	for _, sale := range sales {
		byId[sale.ID] = sale
	}
	out := make([]*models.Sale, 0, len(sales))
	for _, id := range ids {
		if sale, ok := byId[id]; ok {
			out = append(out, sale)
			delete(byId, id)
		}
	}
	return out
}

type NewOrder struct {
	SaleIds     []int  `json:"sale_ids" validate:"required,min=1"`
	OrderNumber string `json:"order_number"`
}

type ConfirmOrderInput struct {
	ID int `json:"id" validate:"required"`
}

type DeleteOrderInput struct {
	ID int `json:"id" validate:"required"`
}

type DeleteSaleInput struct {
	SaleIds []int `json:"sale_ids" validate:"required,min=1"`
}

// CreateOrder folds a set of cart sales into an Order. The order type is
// derived from the first sale: a plain cart line makes an order/active,
// an invoice-status line makes a proforma/pending quote. Stock
// sufficiency is re-validated for every line before any sale row is
// touched.
func CreateOrder(ctx context.Context, input *NewOrder) models.Envelope {
	order, err := createOrder(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), orderModuleName, "CreateOrder", "Error creating order", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(order)
}

// SaveSale is the checkout alias of CreateOrder: same derivation, same
// validation, same writes.
func SaveSale(ctx context.Context, input *NewOrder) models.Envelope {
	order, err := createOrder(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), orderModuleName, "SaveSale", "Error saving sale", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(order)
}

func createOrder(ctx context.Context, input *NewOrder) (*models.Order, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	sales, err := models.GetSales(ctx, input.SaleIds)
	if err != nil {
		return nil, err
	}
	// IN queries return rows in index order; the type derivation below
	// must follow the first sale the caller submitted.
	sales = salesInRequestOrder(sales, input.SaleIds)

	for _, sale := range sales {
		if err := models.ValidateProductStock(ctx, sale.ProductId, sale.Quantity); err != nil {
			return nil, err
		}
	}

	first := sales[0]
	orderType := models.OrderTypeOrder
	orderStatus := models.OrderStatusActive
	if first.Status == models.SaleStatusInvoice {
		// A quote: sales stay cart-typed, stock stays unreserved until
		// the resulting invoice is confirmed.
		orderType = models.OrderTypeProforma
		orderStatus = models.OrderStatusPending
	}

	orderNumber := strings.TrimSpace(input.OrderNumber)
	if orderNumber == "" {
		// The Redis sequence survives restarts; without Redis fall back
		// to a timestamp so checkout still proceeds.
		if n, err := config.GetRedisCounter(ctx, "orderNumberSeq"); err == nil && n > 0 {
			orderNumber = fmt.Sprintf("SO-%06d", n)
		} else {
			orderNumber = "SO-" + time.Now().UTC().Format("20060102150405.000")
		}
	}

	db := config.GetDB()
	if orderType == models.OrderTypeOrder {
		res := db.WithContext(ctx).Model(&models.Sale{}).
			Where("id IN ? AND visible = true", input.SaleIds).
			Updates(map[string]interface{}{
				"type":         models.SaleTypeSale,
				"order_number": orderNumber,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected != int64(len(sales)) {
			return nil, &utils.PartialUpdateError{Expected: int64(len(sales)), Actual: res.RowsAffected}
		}
	}

	order := models.Order{
		OrderNumber: orderNumber,
		Type:        orderType,
		Status:      orderStatus,
		IsPrinted:   utils.NewFalse(),
		IsVerified:  utils.NewFalse(),
		BranchId:    first.BranchId,
		Visible:     utils.NewTrue(),
		SaleIds:     input.SaleIds,
	}
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	for _, sale := range sales {
		join := models.OrderSale{OrderId: order.ID, SaleId: sale.ID}
		if err := db.WithContext(ctx).Create(&join).Error; err != nil {
			if isDuplicateKey(err) {
				return nil, utils.NewValidationError("sale_ids", "sale already belongs to an order")
			}
			return nil, &utils.DependentWriteError{Primary: "order", Dependent: "order sale link", Err: err}
		}
	}

	if err := Dispatch(ctx, models.OrderCreated{Order: &order}, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ConfirmProformaInvoice promotes a proforma/pending quote to an
// invoice/done order. No stock moves here; a proforma never reserved
// any, and the deferred commit happens in ConfirmInvoice.
func ConfirmProformaInvoice(ctx context.Context, input *ConfirmOrderInput) models.Envelope {
	order, err := confirmProformaInvoice(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), orderModuleName, "ConfirmProformaInvoice", "Error confirming proforma", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(order)
}

func confirmProformaInvoice(ctx context.Context, input *ConfirmOrderInput) (*models.Order, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	order, err := models.GetOrder(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if order.Type != models.OrderTypeProforma || order.Status != models.OrderStatusPending {
		return nil, utils.NewValidationError("id", "order is not a pending proforma")
	}

	db := config.GetDB()
	res := db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND type = ? AND status = ?", order.ID, models.OrderTypeProforma, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"type":        models.OrderTypeInvoice,
			"status":      models.OrderStatusDone,
			"is_verified": true,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
	}
	order.Type = models.OrderTypeInvoice
	order.Status = models.OrderStatusDone
	order.IsVerified = utils.NewTrue()

	if err := Dispatch(ctx, models.OrderConfirmed{Order: order, StockCommitted: false}, nil, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ConfirmInvoice performs the deferred stock commit for an invoice
// order: every referenced sale flips to type=sale, status=cash in one
// bulk write, then stock is decremented per line through the ledger. A
// row-count mismatch on the bulk write aborts before any stock moves.
func ConfirmInvoice(ctx context.Context, input *ConfirmOrderInput) models.Envelope {
	order, err := confirmInvoice(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), orderModuleName, "ConfirmInvoice", "Error confirming invoice", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(order)
}

func confirmInvoice(ctx context.Context, input *ConfirmOrderInput) (*models.Order, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	order, err := models.GetOrder(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if order.Type != models.OrderTypeInvoice {
		return nil, utils.NewValidationError("id", "order is not an invoice")
	}
	if len(order.SaleIds) == 0 {
		return nil, utils.NewValidationError("id", "invoice has no sales")
	}
	sales, err := models.GetSales(ctx, order.SaleIds)
	if err != nil {
		return nil, err
	}
	for _, sale := range sales {
		if err := models.ValidateProductStock(ctx, sale.ProductId, sale.Quantity); err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	res := db.WithContext(ctx).Model(&models.Sale{}).
		Where("id IN ? AND visible = true", order.SaleIds).
		Updates(map[string]interface{}{
			"type":   models.SaleTypeSale,
			"status": models.SaleStatusCash,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != int64(len(sales)) {
		return nil, &utils.PartialUpdateError{Expected: int64(len(sales)), Actual: res.RowsAffected}
	}

	for _, sale := range sales {
		movement, err := models.ReserveStock(ctx, sale.ProductId, sale.Quantity,
			models.AdjustmentSourceSaleCart, models.StockRef{SaleId: sale.ID})
		if err != nil {
			return nil, err
		}
		upd := db.WithContext(ctx).Model(&models.Sale{}).Where("id = ?", sale.ID).
			Updates(map[string]interface{}{
				"stock_before": movement.Before,
				"stock_after":  movement.After,
			})
		if upd.Error != nil {
			return nil, upd.Error
		}
	}

	res = db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{"status": models.OrderStatusDone, "is_verified": true})
	if res.Error != nil {
		return nil, res.Error
	}
	order.Status = models.OrderStatusDone
	order.IsVerified = utils.NewTrue()

	if err := Dispatch(ctx, models.OrderConfirmed{Order: order, StockCommitted: true}, nil, order); err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteOrder soft-deletes an order and hides its sales. It never
// releases stock: an order that committed stock keeps its effect until
// the sales themselves are deleted, and a proforma never reserved any.
// Proforma sales revert to cart type so they can be re-quoted.
func DeleteOrder(ctx context.Context, input *DeleteOrderInput) models.Envelope {
	order, err := deleteOrder(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), orderModuleName, "DeleteOrder", "Error deleting order", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(order)
}

func deleteOrder(ctx context.Context, input *DeleteOrderInput) (*models.Order, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	order, err := models.GetOrder(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	res := db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND visible = true", order.ID).
		Update("visible", false)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, &utils.PartialUpdateError{Expected: 1, Actual: res.RowsAffected}
	}
	order.Visible = utils.NewFalse()

	if len(order.SaleIds) > 0 {
		patch := map[string]interface{}{"visible": false}
		if order.Type == models.OrderTypeProforma {
			patch["type"] = models.SaleTypeCart
		}
		res = db.WithContext(ctx).Model(&models.Sale{}).
			Where("id IN ?", order.SaleIds).
			Updates(patch)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected != int64(len(order.SaleIds)) {
			return nil, &utils.PartialUpdateError{Expected: int64(len(order.SaleIds)), Actual: res.RowsAffected}
		}
	}

	if err := Dispatch(ctx, models.OrderDeleted{Order: order}, order, nil); err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteSale hard-deletes sales in bulk. Non-invoice lines release
// their stock, credit lines drop their debt, and each line detaches
// from its parent order; an order left with no sales is deleted too.
// This is the compensating inverse of checkout, so unlike DeleteOrder
// it always restores stock.
func DeleteSale(ctx context.Context, input *DeleteSaleInput) models.Envelope {
	err := deleteSales(ctx, input)
	if err != nil {
		config.LogError(config.GetLogger(), orderModuleName, "DeleteSale", "Error deleting sales", input, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope("sales deleted")
}

func deleteSales(ctx context.Context, input *DeleteSaleInput) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	saleIds := utils.UniqueSlice(input.SaleIds)
	sales, err := models.GetSalesIncludingHidden(ctx, saleIds)
	if err != nil {
		return err
	}

	db := config.GetDB()
	for _, sale := range sales {
		// Release mirrors the reserve predicate: invoice-status lines
		// never took stock. A hidden cart line already gave its stock
		// back on removal (or never held any after a proforma revert);
		// only committed order lines still hold stock after an order
		// delete.
		holdsStock := sale.Status != models.SaleStatusInvoice && sale.Type != models.SaleTypeInvoice
		if !utils.DereferencePtr(sale.Visible) {
			holdsStock = holdsStock && sale.Type == models.SaleTypeSale
		}
		if holdsStock {
			if _, err := models.ReleaseStock(ctx, sale.ProductId, sale.Quantity,
				models.AdjustmentSourceSaleCart, models.StockRef{SaleId: sale.ID}); err != nil {
				return err
			}
		}
		if sale.Status == models.SaleStatusCredit {
			if err := deleteSaleSideRecords(ctx, sale.ID); err != nil {
				return err
			}
		}
		if err := detachSaleFromOrder(ctx, sale.ID); err != nil {
			return err
		}
	}

	res := db.WithContext(ctx).Where("id IN ?", saleIds).Delete(&models.Sale{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(saleIds)) {
		return &utils.PartialDeleteError{Expected: int64(len(saleIds)), Actual: res.RowsAffected}
	}

	return Dispatch(ctx, models.SalesDeleted{SaleIds: saleIds}, sales, nil)
}

// detachSaleFromOrder removes the join row binding a sale to its order
// and soft-deletes the order when its sales set becomes empty.
func detachSaleFromOrder(ctx context.Context, saleId int) error {
	order, err := models.OrderForSale(ctx, saleId)
	if err != nil || order == nil {
		return err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("sale_id = ?", saleId).
		Delete(&models.OrderSale{}).Error; err != nil {
		return err
	}
	remaining, err := models.OrderSaleIds(ctx, order.ID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		res := db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ?", order.ID).Update("visible", false)
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

// GetOrdersList lists visible orders for the envelope boundary.
func GetOrdersList(ctx context.Context, orderType models.OrderType, branchId int) models.Envelope {
	orders, err := models.OrdersList(ctx, orderType, branchId)
	if err != nil {
		config.LogError(config.GetLogger(), orderModuleName, "GetOrdersList", "Error listing orders", orderType, err)
		return models.FailEnvelope(err)
	}
	return models.OkEnvelope(orders)
}
