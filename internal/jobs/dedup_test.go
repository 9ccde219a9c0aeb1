package jobs_test

import (
	"context"
	"errors"
	"time"

	"github.com/costbook/reconciler/internal/jobs"
	"github.com/costbook/reconciler/internal/ledger"
	"github.com/costbook/reconciler/internal/models"
	"github.com/costbook/reconciler/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestDeduplicateInstallments() {
	now := time.Now().In(time.UTC).Truncate(time.Second)
	two := 2

	duplicated := models.Entry{
		Kind:              models.KindExpense,
		Description:       "Rent",
		CostCenterID:      "c1",
		Value:             decimal.NewFromInt(-500),
		Date:              types.NewDate(2024, 2, 29),
		InstallmentNumber: &two,
	}

	oldest := suite.createTestEntryAt(duplicated, now.Add(-2*time.Hour))
	suite.createTestEntryAt(duplicated, now.Add(-time.Hour))
	suite.createTestEntryAt(duplicated, now)

	report, err := jobs.New(suite.client, jobs.Options{Execute: true}).DeduplicateInstallments(context.Background())
	suite.Require().Nil(err)

	suite.Assert().Equal(1, report.Kept)
	suite.Assert().Equal(2, report.Removed)
	suite.Assert().Zero(report.Failed())

	remaining, err := suite.client.Entries(context.Background(), ledger.Filter{})
	suite.Require().Nil(err)
	suite.Require().Len(remaining, 1)
	suite.Assert().Equal(oldest.ID, remaining[0].ID, "the earliest created copy survives")
}

func (suite *TestSuiteStandard) TestDeduplicateInstallmentsDryRun() {
	now := time.Now().In(time.UTC)
	one := 1

	entry := models.Entry{
		Kind:              models.KindExpense,
		Description:       "Power",
		CostCenterID:      "c1",
		Value:             decimal.NewFromInt(-80),
		Date:              types.NewDate(2024, 1, 5),
		InstallmentNumber: &one,
	}
	suite.createTestEntryAt(entry, now.Add(-time.Hour))
	suite.createTestEntryAt(entry, now)

	report, err := jobs.New(suite.client, jobs.Options{}).DeduplicateInstallments(context.Background())
	suite.Require().Nil(err)

	suite.Assert().True(report.DryRun)
	suite.Assert().Equal(1, report.Removed, "dry-run reports the delta it would apply")
	suite.Assert().Equal(2, suite.countEntries(), "dry-run must not write")
}

// Running the dedup twice removes nothing on the second pass.
func (suite *TestSuiteStandard) TestDeduplicateInstallmentsStable() {
	now := time.Now().In(time.UTC)
	three := 3

	entry := models.Entry{
		Kind:              models.KindExpense,
		Description:       "Insurance",
		CostCenterID:      "c2",
		Value:             decimal.NewFromInt(-120),
		Date:              types.NewDate(2024, 4, 30),
		InstallmentNumber: &three,
	}
	suite.createTestEntryAt(entry, now.Add(-time.Hour))
	suite.createTestEntryAt(entry, now)

	runner := jobs.New(suite.client, jobs.Options{Execute: true})

	first, err := runner.DeduplicateInstallments(context.Background())
	suite.Require().Nil(err)
	suite.Assert().Equal(1, first.Removed)

	second, err := runner.DeduplicateInstallments(context.Background())
	suite.Require().Nil(err)
	suite.Assert().Zero(second.Removed)
	suite.Assert().Equal(1, second.Kept)
}

func (suite *TestSuiteStandard) TestDeduplicateInstallmentsLegacyRows() {
	now := time.Now().In(time.UTC)

	// Legacy rows have no installment number. They collide only with other
	// legacy rows sharing the rest of the identity.
	legacy := models.Entry{
		Kind:         models.KindExpense,
		Description:  "Old contract",
		CostCenterID: "c1",
		Value:        decimal.NewFromInt(-90),
		Date:         types.NewDate(2019, 6, 1),
	}
	suite.createTestEntryAt(legacy, now.Add(-time.Hour))
	suite.createTestEntryAt(legacy, now)

	one := 1
	numbered := legacy
	numbered.InstallmentNumber = &one
	suite.createTestEntryAt(numbered, now)

	report, err := jobs.New(suite.client, jobs.Options{Execute: true}).DeduplicateInstallments(context.Background())
	suite.Require().Nil(err)

	suite.Assert().Equal(1, report.Removed, "only the duplicated legacy row is removed")
	suite.Assert().Equal(2, report.Kept)
}

func (suite *TestSuiteStandard) TestDeduplicateInstallmentsFetchError() {
	suite.CloseDB()

	_, err := jobs.New(suite.client, jobs.Options{Execute: true}).DeduplicateInstallments(context.Background())
	suite.Assert().NotNil(err, "a failed fetch aborts the job")
}

func (suite *TestSuiteStandard) TestDeduplicateTemplates() {
	// Two templates for the same recurring expense, each with two generated
	// installments carrying the template's value.
	small := suite.createTestTemplate("Salary", "c1", -1000, types.NewDate(2024, 1, 15), 3, 2)
	large := suite.createTestTemplate("Salary", "c1", -1200, types.NewDate(2024, 1, 15), 3, 2)

	report, err := jobs.New(suite.client, jobs.Options{Execute: true}).DeduplicateTemplates(context.Background())
	suite.Require().Nil(err)

	suite.Assert().Equal(1, report.Kept)
	suite.Assert().Equal(3, report.Removed, "the losing template and both of its installments")
	suite.Assert().Zero(report.Failed())

	templates, err := suite.client.Entries(context.Background(), ledger.Filter{IsTemplate: ledger.Bool(true)})
	suite.Require().Nil(err)
	suite.Require().Len(templates, 1)
	suite.Assert().Equal(large.ID, templates[0].ID, "the larger magnitude template survives")

	installments, err := suite.client.Entries(context.Background(), ledger.Filter{IsTemplate: ledger.Bool(false)})
	suite.Require().Nil(err)
	suite.Require().Len(installments, 2)
	for _, entry := range installments {
		suite.Assert().True(entry.Value.Equal(large.Value), "the survivor's installments stay")
	}

	var count int64
	suite.Require().Nil(models.DB.Unscoped().Model(&models.Entry{}).Where("id = ?", small.ID).Where("deleted_at IS NOT NULL").Count(&count).Error)
	suite.Assert().Equal(int64(1), count, "the losing template is deleted")
}

func (suite *TestSuiteStandard) TestDeduplicateTemplatesDryRun() {
	suite.createTestTemplate("Salary", "c1", -1000, types.NewDate(2024, 1, 15), 3, 2)
	suite.createTestTemplate("Salary", "c1", -1200, types.NewDate(2024, 1, 15), 3, 2)

	report, err := jobs.New(suite.client, jobs.Options{}).DeduplicateTemplates(context.Background())
	suite.Require().Nil(err)

	suite.Assert().True(report.DryRun)
	suite.Assert().Equal(3, report.Removed)
	suite.Assert().Equal(6, suite.countEntries(), "dry-run must not write")
}

func (suite *TestSuiteStandard) TestDeduplicateTemplatesMalformedSkipped() {
	// A template without a duration is corrupt user data: never expanded,
	// never deleted, reported as skipped.
	one := 1
	suite.createTestEntry(models.Entry{
		Kind:              models.KindExpense,
		Description:       "Rent",
		CostCenterID:      "c1",
		Value:             decimal.NewFromInt(-500),
		Date:              types.NewDate(2024, 1, 31),
		IsTemplate:        true,
		InstallmentNumber: &one,
	})
	suite.createTestTemplate("Rent", "c1", -500, types.NewDate(2024, 1, 31), 3, 0)

	report, err := jobs.New(suite.client, jobs.Options{Execute: true}).DeduplicateTemplates(context.Background())
	suite.Require().Nil(err)

	suite.Assert().Equal(1, report.Skipped)
	suite.Assert().Zero(report.Removed, "the malformed template does not count as a duplicate of the healthy one")

	templates, err := suite.client.Entries(context.Background(), ledger.Filter{IsTemplate: ledger.Bool(true)})
	suite.Require().Nil(err)
	suite.Assert().Len(templates, 2, "both templates are still there")
}

// failingDeleteClient fails the delete of one specific entry and passes
// everything else through.
type failingDeleteClient struct {
	ledger.Client
	failID uuid.UUID
}

func (c failingDeleteClient) Delete(ctx context.Context, id uuid.UUID) error {
	if id == c.failID {
		return errors.New("disk I/O error")
	}

	return c.Client.Delete(ctx, id)
}

func (suite *TestSuiteStandard) TestDeduplicateInstallmentsRowFailure() {
	now := time.Now().In(time.UTC).Truncate(time.Second)
	two := 2

	duplicated := models.Entry{
		Kind:              models.KindExpense,
		Description:       "Rent",
		CostCenterID:      "c1",
		Value:             decimal.NewFromInt(-500),
		Date:              types.NewDate(2024, 2, 29),
		InstallmentNumber: &two,
	}

	oldest := suite.createTestEntryAt(duplicated, now.Add(-2*time.Hour))
	stuck := suite.createTestEntryAt(duplicated, now.Add(-time.Hour))
	suite.createTestEntryAt(duplicated, now)

	client := failingDeleteClient{Client: suite.client, failID: stuck.ID}
	report, err := jobs.New(client, jobs.Options{Execute: true}).DeduplicateInstallments(context.Background())
	suite.Require().Nil(err, "a failed row write must not abort the job")

	suite.Assert().Equal(1, report.Kept)
	suite.Assert().Equal(1, report.Removed, "the job continues past the failed row")
	suite.Require().Equal(1, report.Failed())
	suite.Assert().Equal("delete", report.Failures[0].Op)
	suite.Assert().Equal(stuck.ID, report.Failures[0].EntryID)

	remaining, err := suite.client.Entries(context.Background(), ledger.Filter{})
	suite.Require().Nil(err)
	suite.Require().Len(remaining, 2)

	ids := []uuid.UUID{remaining[0].ID, remaining[1].ID}
	suite.Assert().Contains(ids, oldest.ID)
	suite.Assert().Contains(ids, stuck.ID, "the row whose delete failed is untouched")
}
