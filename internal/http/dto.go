package http

import (
	"budget/internal/core"
)

// Amounts travel as strings with two decimals so clients never see float
// rounding.

type balanceItemRequest struct {
	Name string `json:"name"`
	Cash string `json:"cash"`
	Card string `json:"card"`
}

type balanceRequest struct {
	Date  string               `json:"date"`
	Items []balanceItemRequest `json:"items"`
}

func (req balanceRequest) toDomain() (core.NewBalanceRecord, error) {
	date, err := parseDateField("date", req.Date)
	if err != nil {
		return core.NewBalanceRecord{}, err
	}
	items := make([]core.BalanceItem, 0, len(req.Items))
	for _, it := range req.Items {
		cash, err := parseAmountField("cash", it.Cash)
		if err != nil {
			return core.NewBalanceRecord{}, err
		}
		card, err := parseAmountField("card", it.Card)
		if err != nil {
			return core.NewBalanceRecord{}, err
		}
		items = append(items, core.BalanceItem{Name: it.Name, Cash: cash, Card: card})
	}
	return core.NewBalanceRecord{Date: date, Items: items}, nil
}

type expectedExpenseDTO struct {
	ID          int64  `json:"id,omitempty"`
	Total1to7   string `json:"total1to7"`
	Total8to14  string `json:"total8to14"`
	Total15to21 string `json:"total15to21"`
	Total22to31 string `json:"total22to31"`
	Total       string `json:"total,omitempty"`
}

func (d expectedExpenseDTO) toDomain() (core.ExpectedExpenseRecord, error) {
	var rec core.ExpectedExpenseRecord
	var err error
	if rec.Total1to7, err = parseAmountField("total1to7", d.Total1to7); err != nil {
		return rec, err
	}
	if rec.Total8to14, err = parseAmountField("total8to14", d.Total8to14); err != nil {
		return rec, err
	}
	if rec.Total15to21, err = parseAmountField("total15to21", d.Total15to21); err != nil {
		return rec, err
	}
	if rec.Total22to31, err = parseAmountField("total22to31", d.Total22to31); err != nil {
		return rec, err
	}
	return rec, nil
}

func toExpectedExpenseDTO(rec core.ExpectedExpenseRecord) expectedExpenseDTO {
	return expectedExpenseDTO{
		ID:          rec.ID,
		Total1to7:   core.FormatAmount(rec.Total1to7),
		Total8to14:  core.FormatAmount(rec.Total8to14),
		Total15to21: core.FormatAmount(rec.Total15to21),
		Total22to31: core.FormatAmount(rec.Total22to31),
		Total:       core.FormatAmount(rec.Total()),
	}
}

type balanceItemDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Cash string `json:"cash"`
	Card string `json:"card"`
}

type incomeSourceRecordDTO struct {
	ID             int64  `json:"id"`
	IncomeSourceID int64  `json:"incomeSourceId,omitempty"`
	Name           string `json:"name"`
	Value          string `json:"value"`
	Currency       string `json:"currency"`
	AccrualDay     int    `json:"accrualDay"`
}

type estimateDTO struct {
	PreviousTotal       string `json:"previousTotal"`
	IncomeByEndOfMonth  string `json:"incomeByEndOfMonth"`
	IncomeReceived      string `json:"incomeReceived"`
	ExpenseByEndOfMonth string `json:"expenseByEndOfMonth"`
	ExpenseRemaining    string `json:"expenseRemaining"`
	ProfitByEndOfMonth  string `json:"profitByEndOfMonth"`
	EndOfMonthDate      string `json:"endOfMonthDate"`
}

type balanceResponse struct {
	ID              int64                   `json:"id"`
	Date            string                  `json:"date"`
	Total           string                  `json:"total"`
	Items           []balanceItemDTO        `json:"items"`
	IncomeSources   []incomeSourceRecordDTO `json:"incomeSources"`
	ExpectedExpense *expectedExpenseDTO     `json:"expectedExpense,omitempty"`
	Estimate        *estimateDTO            `json:"estimate,omitempty"`
}

func toBalanceResponse(rec core.BalanceRecord, est *core.BalanceEstimate) balanceResponse {
	resp := balanceResponse{
		ID:            rec.ID,
		Date:          rec.Date.String(),
		Total:         core.FormatAmount(rec.TotalBalance()),
		Items:         make([]balanceItemDTO, 0, len(rec.Items)),
		IncomeSources: make([]incomeSourceRecordDTO, 0, len(rec.IncomeSources)),
	}
	for _, it := range rec.Items {
		resp.Items = append(resp.Items, balanceItemDTO{
			ID:   it.ID,
			Name: it.Name,
			Cash: core.FormatAmount(it.Cash),
			Card: core.FormatAmount(it.Card),
		})
	}
	for _, src := range rec.IncomeSources {
		resp.IncomeSources = append(resp.IncomeSources, incomeSourceRecordDTO{
			ID:             src.ID,
			IncomeSourceID: src.IncomeSourceID,
			Name:           src.Name,
			Value:          core.FormatAmount(src.Value),
			Currency:       string(src.Currency),
			AccrualDay:     src.AccrualDay,
		})
	}
	if rec.ExpectedExpense != nil {
		dto := toExpectedExpenseDTO(*rec.ExpectedExpense)
		resp.ExpectedExpense = &dto
	}
	if est != nil {
		resp.Estimate = &estimateDTO{
			PreviousTotal:       core.FormatAmount(est.PreviousTotal),
			IncomeByEndOfMonth:  core.FormatAmount(est.IncomeByEndOfMonth),
			IncomeReceived:      core.FormatAmount(est.IncomeReceived),
			ExpenseByEndOfMonth: core.FormatAmount(est.ExpenseByEndOfMonth),
			ExpenseRemaining:    core.FormatAmount(est.ExpenseRemaining),
			ProfitByEndOfMonth:  core.FormatAmount(est.ProfitByEndOfMonth),
			EndOfMonthDate:      est.EndOfMonthDate.String(),
		}
	}
	return resp
}

func toEstimatedResponse(rec core.EstimatedBalanceRecord) balanceResponse {
	est := rec.Estimate
	return toBalanceResponse(rec.BalanceRecord, &est)
}

type incomeSourceDTO struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Value      string `json:"value"`
	Currency   string `json:"currency"`
	AccrualDay int    `json:"accrualDay"`
}

func (d incomeSourceDTO) toDomain() (core.IncomeSource, error) {
	value, err := core.ParsePositiveAmount(d.Value)
	if err != nil {
		return core.IncomeSource{}, err
	}
	return core.IncomeSource{
		ID:         d.ID,
		Name:       d.Name,
		Value:      value,
		Currency:   core.Currency(d.Currency),
		AccrualDay: d.AccrualDay,
	}, nil
}

func toIncomeSourceDTO(src core.IncomeSource) incomeSourceDTO {
	return incomeSourceDTO{
		ID:         src.ID,
		Name:       src.Name,
		Value:      core.FormatAmount(src.Value),
		Currency:   string(src.Currency),
		AccrualDay: src.AccrualDay,
	}
}

type expenseDTO struct {
	ID       int64  `json:"id"`
	Value    string `json:"value"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Regular  bool   `json:"regular"`
	Note     string `json:"note,omitempty"`
}

func (d expenseDTO) toDomain() (core.Expense, error) {
	date, err := parseDateField("date", d.Date)
	if err != nil {
		return core.Expense{}, err
	}
	value, err := core.ParsePositiveAmount(d.Value)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Value:    value,
		Date:     date,
		Category: d.Category,
		Regular:  d.Regular,
		Note:     d.Note,
	}, nil
}

func toExpenseDTO(e core.Expense) expenseDTO {
	return expenseDTO{
		ID:       e.ID,
		Value:    core.FormatAmount(e.Value),
		Date:     e.Date.String(),
		Category: e.Category,
		Regular:  e.Regular,
		Note:     e.Note,
	}
}

type periodResponse struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type storageItemDTO struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type storageRecordDTO struct {
	ID    int64            `json:"id,omitempty"`
	Date  string           `json:"date"`
	Items []storageItemDTO `json:"items"`
	// Totals is keyed by currency code.
	Totals map[string]string `json:"totals,omitempty"`
}

func (d storageRecordDTO) toDomain() (core.StorageRecord, error) {
	date, err := parseDateField("date", d.Date)
	if err != nil {
		return core.StorageRecord{}, err
	}
	items := make([]core.StorageItem, 0, len(d.Items))
	for _, it := range d.Items {
		value, err := parseAmountField("value", it.Value)
		if err != nil {
			return core.StorageRecord{}, err
		}
		items = append(items, core.StorageItem{Name: it.Name, Value: value, Currency: core.Currency(it.Currency)})
	}
	return core.StorageRecord{Date: date, Items: items}, nil
}

func toStorageRecordDTO(rec core.StorageRecord) storageRecordDTO {
	out := storageRecordDTO{
		ID:     rec.ID,
		Date:   rec.Date.String(),
		Items:  make([]storageItemDTO, 0, len(rec.Items)),
		Totals: make(map[string]string),
	}
	for _, it := range rec.Items {
		out.Items = append(out.Items, storageItemDTO{
			ID:       it.ID,
			Name:     it.Name,
			Value:    core.FormatAmount(it.Value),
			Currency: string(it.Currency),
		})
	}
	for cur, total := range rec.TotalsByCurrency() {
		out.Totals[string(cur)] = core.FormatAmount(total)
	}
	return out
}
