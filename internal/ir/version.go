package ir

// ToolVersion is the sdfsched version recorded with stored runs.
const ToolVersion = "0.1.0"
