package fake

import (
	"time"

	access "github.com/beraterhub/access-go"
)

func defaultOffers() map[string][]access.Offer {
	return map[string][]access.Offer{
		"internet-tv": {
			{ID: "itv-1", Category: "internet-tv", Provider: "Telekom", Name: "MagentaZuhause L", MonthlyPrice: 44.95, SetupFee: 69.95, ContractMonths: 24, Features: []string{"250 Mbit/s", "MagentaTV"}, Rating: 4.2},
			{ID: "itv-2", Category: "internet-tv", Provider: "Vodafone", Name: "GigaZuhause 500 Kabel", MonthlyPrice: 39.99, SetupFee: 0, ContractMonths: 24, Features: []string{"500 Mbit/s"}, Rating: 3.9},
			{ID: "itv-3", Category: "internet-tv", Provider: "1&1", Name: "DSL 100", MonthlyPrice: 29.99, SetupFee: 9.95, ContractMonths: 24, Features: []string{"100 Mbit/s", "Router inklusive"}, Rating: 4.0},
		},
		"strom": {
			{ID: "str-1", Category: "strom", Provider: "E.ON", Name: "Strom Öko", MonthlyPrice: 89.00, ContractMonths: 12, Features: []string{"100% Ökostrom"}, Rating: 4.1},
			{ID: "str-2", Category: "strom", Provider: "Vattenfall", Name: "Natur24 Strom", MonthlyPrice: 84.50, ContractMonths: 24, Features: []string{"Preisgarantie 24 Monate"}, Rating: 3.8},
		},
		"versicherung": {
			{ID: "ver-1", Category: "versicherung", Provider: "HUK-COBURG", Name: "Haftpflicht Plus", MonthlyPrice: 5.20, ContractMonths: 12, Rating: 4.5},
		},
	}
}

func sampleBerater(now time.Time) []access.Berater {
	return []access.Berater{
		{
			ID: "sample-1", Name: "Anna Schmidt", Email: "anna.schmidt@berater.example",
			Company: "Schmidt Finanz", City: "Berlin", ZipCode: "10115",
			Specializations: []string{"Versicherung", "Altersvorsorge"}, Verified: true, CreatedAt: now,
		},
		{
			ID: "sample-2", Name: "Jonas Weber", Email: "jonas.weber@berater.example",
			Company: "Weber Energie", City: "München", ZipCode: "80331",
			Specializations: []string{"Strom", "Gas"}, CreatedAt: now.Add(time.Second),
		},
	}
}
