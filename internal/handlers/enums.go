package handlers

// OCPP 1.6 enumerations referenced by MeterValues/StopTransaction/
// StatusNotification (spec.md §4.5). Kept as plain string slices rather
// than generated types: handlers only need membership checks via
// validate.Fields.RequiredEnum/OptionalEnum.

var sampledValueContexts = []string{
	"Interruption.Begin", "Interruption.End", "Other",
	"Sample.Clock", "Sample.Periodic",
	"Transaction.Begin", "Transaction.End", "Trigger",
}

var sampledValueFormats = []string{"Raw", "SignedData"}

var sampledValueMeasurands = []string{
	"Energy.Active.Export.Register", "Energy.Active.Import.Register",
	"Energy.Reactive.Export.Register", "Energy.Reactive.Import.Register",
	"Energy.Active.Export.Interval", "Energy.Active.Import.Interval",
	"Energy.Reactive.Export.Interval", "Energy.Reactive.Import.Interval",
	"Power.Active.Export", "Power.Active.Import", "Power.Offered",
	"Power.Reactive.Export", "Power.Reactive.Import", "Power.Factor",
	"Current.Import", "Current.Export", "Current.Offered",
	"Voltage", "Frequency", "Temperature", "SoC", "RPM",
}

var sampledValuePhases = []string{
	"L1", "L2", "L3", "N", "L1-N", "L2-N", "L3-N", "L1-L2", "L2-L3", "L3-L1",
}

var sampledValueLocations = []string{"Body", "Cable", "EV", "Inlet", "Outlet"}

var sampledValueUnits = []string{
	"Wh", "kWh", "varh", "kvarh", "W", "kW", "VA", "kVA", "var", "kvar",
	"A", "V", "Celsius", "Fahrenheit", "K", "Percent",
}

var connectorStatuses = []string{
	"Available", "Preparing", "Charging", "SuspendedEVSE", "SuspendedEV",
	"Finishing", "Reserved", "Unavailable", "Faulted",
}

var chargePointErrorCodes = []string{
	"ConnectorLockFailure", "EVCommunicationError", "GroundFailure",
	"HighTemperature", "InternalError", "LocalListConflict", "NoError",
	"OtherError", "OverCurrentFailure", "OverVoltage", "PowerMeterFailure",
	"PowerSwitchFailure", "ReaderFailure", "ResetFailure", "UnderVoltage",
	"WeakSignal",
}

var stopReasons = []string{
	"EmergencyStop", "EVDisconnected", "HardReset", "Local", "Other",
	"PowerLoss", "Reboot", "Remote", "SoftReset", "UnlockCommand",
	"DeAuthorized",
}
