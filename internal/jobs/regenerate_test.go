package jobs_test

import (
	"context"
	"time"

	"github.com/costbook/reconciler/internal/jobs"
	"github.com/costbook/reconciler/internal/ledger"
	"github.com/costbook/reconciler/internal/models"
	"github.com/costbook/reconciler/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestRegenerate() {
	// Two installments with drifted dates, the corruption regeneration fixes
	template := suite.createTestTemplate("Rent", "c1", -500, types.NewDate(2024, 1, 31), 3, 0)
	for offset := 1; offset <= 2; offset++ {
		number := offset + 1
		suite.createTestEntry(models.Entry{
			Kind:              models.KindExpense,
			Description:       "Rent",
			CostCenterID:      "c1",
			Value:             decimal.NewFromInt(-500),
			Date:              types.NewDate(2024, time.Month(1+offset), 28),
			InstallmentNumber: &number,
		})
	}

	report, err := jobs.New(suite.client, jobs.Options{Execute: true}).Regenerate(context.Background(), template.ID)
	suite.Require().Nil(err)

	suite.Assert().Equal(2, report.Removed)
	suite.Assert().Equal(2, report.Inserted)
	suite.Assert().Zero(report.Failed())

	installments, err := suite.client.Entries(context.Background(), ledger.Filter{IsTemplate: ledger.Bool(false), OrderBy: "date"})
	suite.Require().Nil(err)
	suite.Require().Len(installments, 2)

	// 2024 is a leap year: the 31st clamps to February 29, then recovers
	suite.Assert().Equal(types.NewDate(2024, 2, 29), installments[0].Date)
	suite.Assert().Equal(2, *installments[0].InstallmentNumber)
	suite.Assert().Equal(types.NewDate(2024, 3, 31), installments[1].Date)
	suite.Assert().Equal(3, *installments[1].InstallmentNumber)
}

// Regenerating twice yields the same installment set both times.
func (suite *TestSuiteStandard) TestRegenerateIdempotent() {
	template := suite.createTestTemplate("Lease", "c2", -900, types.NewDate(2023, 10, 31), 4, 3)
	runner := jobs.New(suite.client, jobs.Options{Execute: true})

	first, err := runner.Regenerate(context.Background(), template.ID)
	suite.Require().Nil(err)
	firstSet, err := suite.client.Entries(context.Background(), ledger.Filter{IsTemplate: ledger.Bool(false), OrderBy: "date"})
	suite.Require().Nil(err)

	second, err := runner.Regenerate(context.Background(), template.ID)
	suite.Require().Nil(err)
	secondSet, err := suite.client.Entries(context.Background(), ledger.Filter{IsTemplate: ledger.Bool(false), OrderBy: "date"})
	suite.Require().Nil(err)

	suite.Assert().Equal(first.Inserted, second.Inserted)
	suite.Require().Equal(len(firstSet), len(secondSet))
	for i := range firstSet {
		suite.Assert().Equal(firstSet[i].Date, secondSet[i].Date)
		suite.Assert().Equal(*firstSet[i].InstallmentNumber, *secondSet[i].InstallmentNumber)
		suite.Assert().True(firstSet[i].Value.Equal(secondSet[i].Value))
	}
}

func (suite *TestSuiteStandard) TestRegenerateDryRun() {
	template := suite.createTestTemplate("Rent", "c1", -500, types.NewDate(2024, 1, 31), 3, 2)

	report, err := jobs.New(suite.client, jobs.Options{}).Regenerate(context.Background(), template.ID)
	suite.Require().Nil(err)

	suite.Assert().True(report.DryRun)
	suite.Assert().Equal(2, report.Removed)
	suite.Assert().Equal(2, report.Inserted)
	suite.Assert().Equal(3, suite.countEntries(), "dry-run must not write")
}

func (suite *TestSuiteStandard) TestRegenerateMalformedTemplate() {
	one := 1
	malformed := suite.createTestEntry(models.Entry{
		Kind:              models.KindExpense,
		Description:       "Broken",
		CostCenterID:      "c1",
		Value:             decimal.NewFromInt(-100),
		Date:              types.NewDate(2024, 1, 1),
		IsTemplate:        true,
		InstallmentNumber: &one,
	})
	two := 2
	suite.createTestEntry(models.Entry{
		Kind:              models.KindExpense,
		Description:       "Broken",
		CostCenterID:      "c1",
		Value:             decimal.NewFromInt(-100),
		Date:              types.NewDate(2024, 2, 1),
		InstallmentNumber: &two,
	})

	report, err := jobs.New(suite.client, jobs.Options{Execute: true}).Regenerate(context.Background(), malformed.ID)
	suite.Require().Nil(err)

	suite.Assert().Equal(1, report.Skipped)
	suite.Assert().Zero(report.Removed, "nothing is deleted for a template that cannot be expanded")
	suite.Assert().Equal(2, suite.countEntries())
}

func (suite *TestSuiteStandard) TestRegenerateMissingTemplate() {
	_, err := jobs.New(suite.client, jobs.Options{Execute: true}).Regenerate(context.Background(), uuid.New())
	suite.Assert().NotNil(err, "an unknown template is a fetch failure")
}

func (suite *TestSuiteStandard) TestRegenerateNonTemplate() {
	entry := suite.createTestEntry(models.Entry{
		Kind:         models.KindExpense,
		Description:  "Not a template",
		CostCenterID: "c1",
		Value:        decimal.NewFromInt(-10),
		Date:         types.NewDate(2024, 1, 1),
	})

	report, err := jobs.New(suite.client, jobs.Options{Execute: true}).Regenerate(context.Background(), entry.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(1, report.Skipped)
}
