package gormstore

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedCylinderTypes inserts the fixed catalog of twelve SKUs. Existing
// rows are left untouched so repeated startups are safe.
func SeedCylinderTypes(ctx context.Context, db *gorm.DB) error {
	weights := map[string]decimal.Decimal{
		CategoryDomestic:   decimal.NewFromFloat(14.2),
		CategoryCommercial: decimal.NewFromFloat(19),
	}
	secondary := map[string]decimal.Decimal{
		CategoryDomestic:   decimal.NewFromInt(5),
		CategoryCommercial: decimal.NewFromInt(5),
	}

	var rows []CylinderType
	for _, company := range []string{CompanyHPCL, CompanyIOCL, CompanyBPCL} {
		for _, category := range []string{CategoryDomestic, CategoryCommercial} {
			rows = append(rows,
				CylinderType{Company: company, Category: category, WeightKg: weights[category]},
				CylinderType{Company: company, Category: category, WeightKg: secondary[category]},
			)
		}
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company"}, {Name: "category"}, {Name: "weight_kg"}},
			DoNothing: true,
		}).
		Create(&rows).Error
	if err != nil {
		return wrapStoreError(errorSubjectCatalog, errorCodeInsert, err)
	}
	return nil
}
