package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sadikovi/pulsar/engine"
	"github.com/sadikovi/pulsar/models"
	"github.com/sadikovi/pulsar/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes the report for one dataset against an aggregated
// session: overall band distribution, price statistics, and the top regions
// directly under the root ranked by weighted priority score.
func (s *InsightService) Generate(bundle *models.Bundle, sess *engine.Session) *models.Report {
	report := &models.Report{
		Dataset:        bundle.Dataset.Name,
		ReferencePrice: sess.Reference(),
		TotalOffers:    len(bundle.Offers),
		Classified:     sess.Classified(),
		Excluded:       sess.Excluded(),
	}

	tree := sess.Tree()
	root := tree.Root()
	report.Bands = root.Summary

	// Price stats over the priced offers.
	var priced []*models.Offer
	for _, o := range bundle.Offers {
		if o.Properties.Price > 0 {
			priced = append(priced, o)
		}
	}
	if len(priced) > 0 {
		report.MinPrice = priced[0].Properties.Price
		report.MaxPrice = priced[0].Properties.Price
		report.MostExpensive = priced[0]
		var total float64
		for _, o := range priced {
			p := o.Properties.Price
			total += p
			if p < report.MinPrice {
				report.MinPrice = p
			}
			if p > report.MaxPrice {
				report.MaxPrice = p
				report.MostExpensive = o
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	// Regions directly under the root, ranked by weighted score.
	policy := sess.Policy()
	for _, child := range root.Children {
		sum := child.Summary
		if sum.Total() == 0 {
			continue
		}
		score := float64(policy.WeightOf(models.BandA)*sum.Acceptable+
			policy.WeightOf(models.BandB)*sum.Considerable+
			policy.WeightOf(models.BandC)*sum.Expensive) / float64(sum.Total())
		report.TopRegions = append(report.TopRegions, models.RegionStat{
			ID:      child.ID,
			Name:    child.Name,
			Offers:  sum.Total(),
			Score:   round2(score),
			Summary: sum,
		})
	}
	sort.Slice(report.TopRegions, func(i, j int) bool {
		if report.TopRegions[i].Score != report.TopRegions[j].Score {
			return report.TopRegions[i].Score > report.TopRegions[j].Score
		}
		return report.TopRegions[i].Offers > report.TopRegions[j].Offers
	})
	if len(report.TopRegions) > 5 {
		report.TopRegions = report.TopRegions[:5]
	}

	return report
}

func (s *InsightService) Print(r *models.Report) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 OFFER PRIORITY INSIGHTS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Dataset          : \033[1m%s\033[0m\n", r.Dataset)
	fmt.Printf("  Reference price  : \033[1m$%.2f\033[0m\n", r.ReferencePrice)
	fmt.Printf("  Total offers     : \033[1m%d\033[0m\n", r.TotalOffers)
	fmt.Printf("  Classified       : \033[1m%d\033[0m\n", r.Classified)
	if r.Excluded > 0 {
		fmt.Printf("  Excluded         : \033[1;31m%d\033[0m (no usable value)\n", r.Excluded)
	}
	fmt.Println()

	// Band distribution
	fmt.Printf("\033[1;33m  Priority Bands\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.Bands.Total() == 0 {
		fmt.Printf("  No classified offers\n")
	} else {
		fmt.Printf("  A  Acceptable   %-3d %s\n", r.Bands.Acceptable, bar(r.Bands.Acceptable, "\033[1;32m"))
		fmt.Printf("  B  Considerable %-3d %s\n", r.Bands.Considerable, bar(r.Bands.Considerable, "\033[1;33m"))
		fmt.Printf("  C  Expensive    %-3d %s\n", r.Bands.Expensive, bar(r.Bands.Expensive, "\033[1;31m"))
	}
	fmt.Println()

	// Price Stats
	fmt.Printf("\033[1;33m  Price Statistics\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Printf("  Average price : \033[1;32m$%.2f\033[0m\n", r.AveragePrice)
		fmt.Printf("  Minimum price : \033[1;32m$%.2f\033[0m\n", r.MinPrice)
		fmt.Printf("  Maximum price : \033[1;32m$%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	// Most Expensive
	if r.MostExpensive != nil {
		fmt.Printf("\033[1;33m  Most Expensive Offer\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(r.MostExpensive.Name, 50))
		fmt.Printf("  Price : \033[1;31m$%.2f\033[0m\n", r.MostExpensive.Properties.Price)
		if r.MostExpensive.Properties.Link != "" {
			fmt.Printf("  Link  : %s\n", r.MostExpensive.Properties.Link)
		}
		fmt.Println()
	}

	// Top regions by weighted score
	fmt.Printf("\033[1;33m  Top Regions by Priority Score\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopRegions) == 0 {
		fmt.Printf("  No regions with classified offers\n")
	} else {
		for i, stat := range r.TopRegions {
			name := truncate(stat.Name, 28)
			fmt.Printf("  \033[1m%d.\033[0m %-30s \033[1;32m%6.1f\033[0m  A:%-3d B:%-3d C:%-3d\n",
				i+1, name, stat.Score,
				stat.Summary.Acceptable, stat.Summary.Considerable, stat.Summary.Expensive)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// bar renders a colored histogram bar, capped so large counts stay on one
// line.
func bar(count int, color string) string {
	n := count
	if n > 40 {
		n = 40
	}
	if n == 0 {
		return ""
	}
	return color + strings.Repeat("█", n) + "\033[0m"
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
