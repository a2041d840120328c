package models

// Contract names as they appear in calls and events.
const (
	ContractRentocoin          = "Rentocoin"
	ContractPropertyListing    = "PropertyListing"
	ContractRentalAgreement    = "RentalAgreement"
	ContractServiceMarketplace = "ServiceMarketplace"
)

// Contract event names
const (
	EventTransfer = "Transfer"
	EventApproval = "Approval"

	EventPropertyAdded   = "PropertyAdded"
	EventPropertyUpdated = "PropertyUpdated"
	EventPropertyDeleted = "PropertyDeleted"

	EventAgreementCreated    = "AgreementCreated"
	EventAgreementActivated  = "AgreementActivated"
	EventAgreementTerminated = "AgreementTerminated"

	EventServiceAdded       = "ServiceAdded"
	EventServiceUpdated     = "ServiceUpdated"
	EventServiceDeactivated = "ServiceDeactivated"
	EventServiceBooked      = "ServiceBooked"
	EventBookingCompleted   = "BookingCompleted"
)
