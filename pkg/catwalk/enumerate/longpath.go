package enumerate

// conventionalPathLimit is the conventional maximum path length. Paths
// longer than this go through the long-path policy before any filesystem
// operation.
const conventionalPathLimit = 260
