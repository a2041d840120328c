package contracts

import "github.com/tor-rent/backend/internal/chain"

// Suite is the set of deployed contracts sharing one ledger.
type Suite struct {
	Token       *Rentocoin
	Listing     *PropertyListing
	Agreements  *RentalAgreement
	Marketplace *ServiceMarketplace
}

// Deploy creates all contracts. The full token supply goes to deployer.
func Deploy(deployer chain.Address, tokenSupply uint64) *Suite {
	token := NewRentocoin(deployer, tokenSupply)
	return &Suite{
		Token:       token,
		Listing:     NewPropertyListing(),
		Agreements:  NewRentalAgreement(),
		Marketplace: NewServiceMarketplace(token),
	}
}
