package event

const AccountCreatedDestination string = "account_created"
const AccountCreatedConsumerAudit string = "account_created_audit"
