package models

import (
	"fmt"
	"strings"
)

// Domain категория данных, выгружаемых поставщиком
type Domain string

const (
	DomainCatalog Domain = "catalog"
	DomainStock   Domain = "stock"
	DomainSales   Domain = "sales"
)

// AllDomains возвращает домены в порядке обработки
func AllDomains() []Domain {
	return []Domain{DomainCatalog, DomainStock, DomainSales}
}

// ParseDomain разбирает имя домена без учёта регистра
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DomainCatalog, DomainStock, DomainSales:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
}

// ParseDomains разбирает список доменов, разделённых запятыми.
// Результат упорядочен как AllDomains и не содержит повторов.
// Пустая строка означает все домены.
func ParseDomains(csv string) ([]Domain, error) {
	if strings.TrimSpace(csv) == "" {
		return AllDomains(), nil
	}

	requested := make(map[Domain]bool)
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := ParseDomain(part)
		if err != nil {
			return nil, err
		}
		requested[d] = true
	}

	domains := make([]Domain, 0, len(requested))
	for _, d := range AllDomains() {
		if requested[d] {
			domains = append(domains, d)
		}
	}
	return domains, nil
}
