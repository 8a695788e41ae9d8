// Package tax calcule les montants HT / TVA / TTC par ligne et par facture.
//
// Tous les montants restent en decimal.Decimal sans arrondi interne :
// l'arrondi à 2 décimales n'intervient qu'au rendu, via FormatAmount, avec
// un arrondi bancaire (au pair) identique côté XML et côté PDF pour exclure
// tout écart d'un centime entre les deux artefacts.
package tax

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/facturegen/facturx/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// Totals est le triplet de totaux agrégés sur les lignes valides, passé
// explicitement aux deux générateurs pour qu'ils ne divergent jamais.
type Totals struct {
	HT  decimal.Decimal
	VAT decimal.Decimal
	TTC decimal.Decimal
}

// ComputeLineTotals calcule et pose en place les montants d'une ligne :
//
//	brut    = quantité × prix unitaire HT
//	remise  = brut × (valeur/100) si percent, valeur telle quelle si amount
//	HT      = max(0, brut − remise)
//	TVA     = HT × taux/100
//	TTC     = HT × (1 + taux/100)
func ComputeLineTotals(l *entity.Line) {
	gross := l.Quantity.Mul(l.UnitPriceHT)

	discount := decimal.Zero
	if l.DiscountValue.IsPositive() {
		switch l.DiscountKind {
		case entity.DiscountPercent:
			discount = gross.Mul(l.DiscountValue.Div(hundred))
		case entity.DiscountAmount:
			discount = l.DiscountValue
		}
	}

	ht := gross.Sub(discount)
	if ht.IsNegative() {
		ht = decimal.Zero
	}
	vat := ht.Mul(l.VATRate.Div(hundred))
	ttc := ht.Add(vat)

	l.DiscountTotal = &discount
	l.TotalHT = &ht
	l.TotalVAT = &vat
	l.TotalTTC = &ttc
}

// ComputeInvoiceTotals calcule les totaux de chaque ligne valide puis les
// agrège. Les lignes invalides ne contribuent rien et restent sans totaux.
func ComputeInvoiceTotals(inv *entity.Invoice) Totals {
	var t Totals
	for _, l := range inv.ValidLines() {
		ComputeLineTotals(l)
		t.HT = t.HT.Add(l.TotalHTValue())
		t.VAT = t.VAT.Add(l.TotalVATValue())
		t.TTC = t.TTC.Add(l.TotalTTCValue())
	}
	return t
}

// RateGroup est une tranche du récapitulatif de TVA : tous les montants des
// lignes valides partageant le même taux (arrondi à 2 décimales).
type RateGroup struct {
	Rate  decimal.Decimal // Taux en pourcentage, arrondi à 2 décimales
	Basis decimal.Decimal // Somme des bases HT au taux
	Tax   decimal.Decimal // Somme des montants de TVA au taux
}

// Breakdown regroupe les lignes valides par taux de TVA et retourne les
// tranches triées par taux croissant. L'ordre déterministe garantit une
// sortie identique à entrées identiques (idempotence des artefacts).
func Breakdown(inv *entity.Invoice) []RateGroup {
	byRate := map[string]*RateGroup{}
	for _, l := range inv.ValidLines() {
		rate := l.VATRate.RoundBank(2)
		key := rate.StringFixed(2)
		g, ok := byRate[key]
		if !ok {
			g = &RateGroup{Rate: rate}
			byRate[key] = g
		}
		g.Basis = g.Basis.Add(l.TotalHTValue())
		g.Tax = g.Tax.Add(l.TotalVATValue())
	}

	groups := make([]RateGroup, 0, len(byRate))
	for _, g := range byRate {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Rate.LessThan(groups[j].Rate)
	})
	return groups
}

// FormatAmount formate un montant pour le rendu : arrondi bancaire à
// 2 décimales puis chaîne à virgule fixe ("1234.50").
func FormatAmount(d decimal.Decimal) string {
	return d.RoundBank(2).StringFixed(2)
}

// FormatRate formate un taux de TVA à 2 décimales pour le XML ("20.00").
func FormatRate(d decimal.Decimal) string {
	return d.RoundBank(2).StringFixed(2)
}
