package models

import (
	"log"

	"bitbucket.org/shweretail/shop_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Product{}, &Category{},
		&Sale{}, &Order{}, &OrderSale{},
		&Purchase{},
		&Debt{}, &DebtHistory{},
		&Account{}, &Transaction{},
		&Adjustment{},
		&Activity{}, &OutboxRecord{},
		&Customer{}, &Supplier{}, &Expense{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
