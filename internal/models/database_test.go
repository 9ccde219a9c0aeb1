package models_test

import (
	"github.com/costbook/reconciler/internal/models"
)

func (suite *TestSuiteStandard) TestDatabaseConnect() {
	suite.Assert().NotNil(models.DB)

	sqlDB, err := models.DB.DB()
	suite.Require().Nil(err)
	suite.Assert().Nil(sqlDB.Ping())
}

func (suite *TestSuiteStandard) TestQueryCallbackNotFound() {
	var entry models.Entry
	err := models.DB.Where(&models.Entry{Description: "does not exist"}).First(&entry).Error

	suite.Require().NotNil(err)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
	suite.Assert().Contains(err.Error(), "entry")
}

func (suite *TestSuiteStandard) TestGeneralCallbackClosedDB() {
	suite.CloseDB()

	err := models.DB.Create(&models.Entry{Description: "after close"}).Error
	suite.Assert().ErrorIs(err, models.ErrGeneral)
}
